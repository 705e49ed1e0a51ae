package catalog

import (
	"strings"
	"testing"
)

func TestDefaultCatalogKeys(t *testing.T) {
	cat := Default()
	for _, key := range []string{
		KeyStart, KeyOptionA, KeyOptionB, KeyRegister,
		KeyAwaitingContact, KeyStepOne, KeyStepTwo, KeyFinalAction,
	} {
		if _, ok := cat.Lookup(key); !ok {
			t.Fatalf("missing catalog entry %q", key)
		}
	}
	if _, ok := cat.Lookup("nope"); ok {
		t.Fatal("unexpected catalog hit for unknown key")
	}
}

func TestDefaultStartHasMenuButtons(t *testing.T) {
	reply, ok := Default().Lookup(KeyStart)
	if !ok {
		t.Fatal("start entry missing")
	}
	want := []string{KeyOptionA, KeyOptionB, KeyRegister}
	if len(reply.Buttons) != len(want) {
		t.Fatalf("buttons = %v, want %v", reply.Buttons, want)
	}
	for i, label := range want {
		if reply.Buttons[i] != label {
			t.Fatalf("button %d = %q, want %q", i, reply.Buttons[i], label)
		}
	}
}

func TestNewCopiesInput(t *testing.T) {
	src := map[string]Reply{"a": {Text: "one"}}
	cat := New(src)
	src["a"] = Reply{Text: "mutated"}
	src["b"] = Reply{Text: "new"}

	got, ok := cat.Lookup("a")
	if !ok || got.Text != "one" {
		t.Fatalf("catalog leaked caller mutation: %+v ok=%v", got, ok)
	}
	if _, ok := cat.Lookup("b"); ok {
		t.Fatal("catalog picked up key added after construction")
	}
}

func TestReplyEmptyAndMedia(t *testing.T) {
	if !(Reply{}).Empty() {
		t.Fatal("zero reply should be empty")
	}
	if (Reply{Photo: "p.jpg"}).Empty() {
		t.Fatal("photo-only reply should not be empty")
	}

	m, ok := Reply{Photo: "p.jpg", Document: "d.pdf"}.Media()
	if !ok || m.Kind != MediaPhoto || m.Ref != "p.jpg" {
		t.Fatalf("photo should win: %+v ok=%v", m, ok)
	}
	m, ok = Reply{Document: "d.pdf"}.Media()
	if !ok || m.Kind != MediaDocument || m.Ref != "d.pdf" {
		t.Fatalf("unexpected document media: %+v ok=%v", m, ok)
	}
	if _, ok := (Reply{Text: "t"}).Media(); ok {
		t.Fatal("text-only reply should carry no media")
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Default().Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}

func TestUnknownOptionReplyEchoesID(t *testing.T) {
	reply := UnknownOptionReply("cb-42")
	if !strings.Contains(reply.Text, "cb-42") {
		t.Fatalf("reply text does not echo the callback id: %q", reply.Text)
	}
}

func TestContactSavedReplyEscapesName(t *testing.T) {
	reply := ContactSavedReply("A*B_C", "+123456789012")
	if !strings.Contains(reply.Text, "+123456789012") {
		t.Fatalf("reply missing phone: %q", reply.Text)
	}
	if strings.Contains(reply.Text, "A*B_C") {
		t.Fatalf("name was not escaped: %q", reply.Text)
	}
}
