// Client 发送路径的白盒测试
package websocket

import (
	"sync"
	"testing"
)

// TestSendRawCloseRace 并发的广播发送和连接关闭可以安全交错，
// 不会向已关闭的通道写入
func TestSendRawCloseRace(t *testing.T) {
	hub := newTestHub()

	for i := 0; i < 200; i++ {
		c := newTestClient(hub, 1, "小明")

		var wg sync.WaitGroup
		start := make(chan struct{})

		// 多个发送方模拟 HTTP 写路径和其他会话的广播
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 16; j++ {
					c.sendRaw([]byte(`{}`))
				}
			}()
		}

		// 关闭方模拟 Hub 注销连接
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c.Close()
		}()

		close(start)
		wg.Wait()
	}
}

// TestSendRawAfterClose 关闭后的发送和重复关闭都是无副作用的空操作
func TestSendRawAfterClose(t *testing.T) {
	hub := newTestHub()
	c := newTestClient(hub, 1, "小明")

	c.Close()
	c.sendRaw([]byte(`{}`))
	c.Close()
}

// TestSendRawDropsWhenFull 发送缓冲区满时丢弃消息而不是阻塞
func TestSendRawDropsWhenFull(t *testing.T) {
	hub := newTestHub()
	c := newTestClient(hub, 1, "小明")

	for i := 0; i < cap(c.send)+10; i++ {
		c.sendRaw([]byte(`{}`))
	}

	if len(c.send) != cap(c.send) {
		t.Fatalf("缓冲区应当刚好写满: len=%d cap=%d", len(c.send), cap(c.send))
	}
}
