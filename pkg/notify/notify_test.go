package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChannelSink_BasicLogging(t *testing.T) {
	messageChan := make(chan Notification, 10)
	sink := NewChannelSink(messageChan)

	sink.Notify(Info, "Test log message")

	select {
	case msg := <-messageChan:
		if msg.Content != "Test log message" {
			t.Errorf("Expected message 'Test log message', got '%s'", msg.Content)
		}
		if msg.Type != Info {
			t.Errorf("Expected type info, got '%s'", msg.Type)
		}
		if time.Since(msg.Time) > time.Second {
			t.Errorf("Timestamp seems too old: %v", msg.Time)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for console message")
	}
}

func TestChannelSink_ChannelFull(t *testing.T) {
	messageChan := make(chan Notification, 1)
	sink := NewChannelSink(messageChan)

	sink.Notify(Info, "Message 1")
	// These must not block even though the channel is full
	sink.Notify(Info, "Message 2")
	sink.Notify(Info, "Message 3")

	if len(messageChan) != 1 {
		t.Errorf("Expected 1 buffered message, got %d", len(messageChan))
	}
	if msg := <-messageChan; msg.Content != "Message 1" {
		t.Errorf("Expected first message to be kept, got '%s'", msg.Content)
	}
}

func TestChannelSink_NilChannel(t *testing.T) {
	// This should not panic
	NewChannelSink(nil).Notify(Warning, "Test message with nil channel")
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		h.Notify(Info, s)
	}

	items := h.Items()
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i, expected := range []string{"c", "d", "e"} {
		if items[i].Content != expected {
			t.Errorf("Item %d: expected '%s', got '%s'", i, expected, items[i].Content)
		}
	}

	h.Clear()
	if len(h.Items()) != 0 {
		t.Error("Expected empty history after Clear")
	}
}

func TestMulti(t *testing.T) {
	a, b := NewHistory(0), NewHistory(0)
	Multi{a, b, Discard, LogSink{}}.Notify(Error, "boom")

	if len(a.Items()) != 1 || len(b.Items()) != 1 {
		t.Errorf("Expected both histories to receive the notification, got %d and %d", len(a.Items()), len(b.Items()))
	}
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	ch1, cancel1 := b.Subscribe(4)
	ch2, cancel2 := b.Subscribe(4)
	defer cancel2()

	b.Notify(Warning, "careful")

	for i, ch := range []<-chan Notification{ch1, ch2} {
		select {
		case n := <-ch:
			if n.Content != "careful" || n.Type != Warning {
				t.Errorf("Subscriber %d: unexpected notification %+v", i, n)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Subscriber %d: timeout", i)
		}
	}

	cancel1()
	cancel1() // Second cancel is a no-op
	if b.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", b.Subscribers())
	}
	if _, ok := <-ch1; ok {
		t.Error("Expected cancelled channel to be closed")
	}
}

func TestNotification_JSON(t *testing.T) {
	n := Notification{Type: Error, Content: "Unrecognised command", Time: time.Unix(0, 0).UTC()}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != "error" {
		t.Errorf("Expected type 'error', got %v", decoded["type"])
	}
	if n.String() != "[ERROR] Unrecognised command" {
		t.Errorf("Unexpected console line %q", n.String())
	}

	var back Notification
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal into Notification failed: %v", err)
	}
	if back.Type != n.Type || back.Content != n.Content || !back.Time.Equal(n.Time) {
		t.Errorf("Expected %+v after decoding, got %+v", n, back)
	}
}

func TestType_UnmarshalJSON(t *testing.T) {
	for i := range typeNames {
		want := Type(i)
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal %v failed: %v", want, err)
		}
		var got Type
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal %s failed: %v", data, err)
		}
		if got != want {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}

	var typ Type
	if err := json.Unmarshal([]byte(`"fatal"`), &typ); err == nil {
		t.Error("Expected error for unknown type name")
	}
	if err := json.Unmarshal([]byte(`3`), &typ); err == nil {
		t.Error("Expected error for a numeric type")
	}
}
