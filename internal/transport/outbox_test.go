package transport

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
)

func TestOutbox_DeliversInOrder(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	m := metrics.New()
	o := NewOutbox(server, 1<<10, time.Second, m)
	r := bufio.NewReader(client)

	for _, line := range []string{"OK\n", "JOINED bob\n", "MESSAGE bob hi\n"} {
		if err := o.Send([]byte(line)); err != nil {
			t.Fatalf("Send(%q): %v", line, err)
		}
	}
	for _, want := range []string{"OK\n", "JOINED bob\n", "MESSAGE bob hi\n"} {
		if got := readLine(t, r); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if m.TotalBytesOut() == 0 {
		t.Error("bytes sent were not counted")
	}
}

func TestOutbox_CloseDrainsThenCloses(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	o := NewOutbox(server, 1<<10, time.Second, nil)
	if err := o.Send([]byte("BYE\n")); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	data, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "BYE\n" {
		t.Errorf("drained %q, want BYE", data)
	}

	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not finish")
	}
}

func TestOutbox_SecondCloseReported(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	o := NewOutbox(server, 0, 0, nil)
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); !cerrors.Is(err, cerrors.ErrSessionClosed) {
		t.Errorf("second Close = %v, want ErrSessionClosed", err)
	}
	if err := o.Send([]byte("late\n")); !cerrors.Is(err, cerrors.ErrSessionClosed) {
		t.Errorf("Send after Close = %v, want ErrSessionClosed", err)
	}
}

func TestOutbox_OversizedLineAcceptedWhenEmpty(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	o := NewOutbox(server, 16, time.Second, nil)
	defer o.Close()

	line := strings.Repeat("x", 100) + "\n"
	if err := o.Send([]byte(line)); err != nil {
		t.Fatalf("Send into empty queue: %v", err)
	}
	if got := readLine(t, bufio.NewReader(client)); got != line {
		t.Errorf("got %d bytes, want %d", len(got), len(line))
	}
}

func TestOutbox_OverflowFlushesThenCloses(t *testing.T) {
	server, client := net.Pipe() // nobody reads yet: the first write blocks
	defer client.Close()

	o := NewOutbox(server, 32, 2*time.Second, nil)
	first := "MESSAGE bob 0123456\n" // 20 bytes
	if err := o.Send([]byte(first)); err != nil {
		t.Fatal(err)
	}
	if err := o.Send([]byte("MESSAGE bob 6543210\n")); !cerrors.Is(err, cerrors.ErrQueueFull) {
		t.Fatalf("Send past the limit = %v, want ErrQueueFull", err)
	}
	if err := o.Send([]byte("more\n")); !cerrors.Is(err, cerrors.ErrSessionClosed) {
		t.Errorf("Send after overflow = %v, want ErrSessionClosed", err)
	}

	// What was accepted is still delivered, then the stream ends.
	data, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != first {
		t.Errorf("flushed %q, want %q", data, first)
	}
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("overflowed writer did not exit")
	}
}

func TestOutbox_StalledWriteAborts(t *testing.T) {
	server, client := net.Pipe() // nobody reads client: writes block
	defer client.Close()

	o := NewOutbox(server, 1<<10, 50*time.Millisecond, nil)
	if err := o.Send([]byte("MESSAGE x y\n")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stalled writer did not give up")
	}
	if err := o.Send([]byte("more\n")); !cerrors.Is(err, cerrors.ErrSessionClosed) {
		t.Errorf("Send after failed write = %v, want ErrSessionClosed", err)
	}
	select {
	case <-o.Ready():
	default:
		t.Error("Ready must be released once the writer has exited")
	}
}

func TestOutbox_ReadyPausesUntilDrained(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	o := NewOutbox(server, 64, time.Second, nil) // pause at 16 bytes, resume at 8
	defer o.Close()

	select {
	case <-o.Ready():
	default:
		t.Fatal("empty outbox should be ready")
	}

	line := "MESSAGE bob hello!!\n" // 20 bytes
	if err := o.Send([]byte(line)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-o.Ready():
		t.Fatal("outbox past its pause mark should not be ready")
	default:
	}

	if got := readLine(t, bufio.NewReader(client)); got != line {
		t.Fatalf("got %q, want %q", got, line)
	}
	select {
	case <-o.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("outbox did not become ready after draining")
	}
}
