package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contactbot/bot/catalog"
	"contactbot/bot/transport"
)

type fakeClient struct {
	mu       sync.Mutex
	texts    []sentText
	media    []sentMedia
	textErr  error
	mediaErr error
}

type sentText struct {
	userID  int64
	text    string
	buttons []string
}

type sentMedia struct {
	userID  int64
	media   catalog.Media
	caption string
}

func (f *fakeClient) SendText(ctx context.Context, userID int64, text string, buttons []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, sentText{userID, text, buttons})
	return nil
}

func (f *fakeClient) SendMedia(ctx context.Context, userID int64, media catalog.Media, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.media = append(f.media, sentMedia{userID, media, caption})
	return nil
}

func (f *fakeClient) AcknowledgeCallback(ctx context.Context, callbackID string) error {
	return nil
}

func (f *fakeClient) sentTexts() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

func TestDeliverEmptyReply(t *testing.T) {
	p := NewPipeline(&fakeClient{}, nil, 0)
	err := p.Deliver(context.Background(), 1, catalog.Reply{})
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("err = %v, expected ErrEmptyReply", err)
	}
}

func TestDeliverTextWithButtons(t *testing.T) {
	client := &fakeClient{}
	p := NewPipeline(client, nil, 0)

	reply := catalog.Reply{Text: "menu", Buttons: []string{"Option A", "Register"}}
	if err := p.Deliver(context.Background(), 5, reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := client.sentTexts()
	if len(sent) != 1 {
		t.Fatalf("sent %d texts, expected 1", len(sent))
	}
	if sent[0].userID != 5 || sent[0].text != "menu" || len(sent[0].buttons) != 2 {
		t.Fatalf("unexpected send: %+v", sent[0])
	}
}

func TestDeliverSchedulesFollowUp(t *testing.T) {
	client := &fakeClient{}
	rec := newSendRecorder(1)
	sched := NewScheduler(rec.send)
	defer sched.Close()
	p := NewPipeline(client, sched, time.Millisecond)

	reply := catalog.Reply{Text: "primary", FollowUp: "delayed"}
	if err := p.Deliver(context.Background(), 5, reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFired(t, rec)

	if got := rec.texts(); len(got) != 1 || got[0] != "delayed" {
		t.Fatalf("unexpected follow-up sends: %v", got)
	}
}

func TestDeliverNoFollowUpAfterPrimaryFailure(t *testing.T) {
	client := &fakeClient{textErr: errors.New("telegram down")}
	rec := newSendRecorder(1)
	sched := NewScheduler(rec.send)
	defer sched.Close()
	p := NewPipeline(client, sched, time.Millisecond)

	reply := catalog.Reply{Text: "primary", FollowUp: "delayed"}
	if err := p.Deliver(context.Background(), 5, reply); err == nil {
		t.Fatal("expected primary send error")
	}

	time.Sleep(20 * time.Millisecond)
	if got := rec.texts(); len(got) != 0 {
		t.Fatalf("follow-up fired despite primary failure: %v", got)
	}
}

func TestDeliverMediaFallbackOnMissingFile(t *testing.T) {
	client := &fakeClient{mediaErr: transport.ErrMediaNotFound}
	rec := newSendRecorder(1)
	sched := NewScheduler(rec.send)
	defer sched.Close()
	p := NewPipeline(client, sched, time.Millisecond)

	reply := catalog.Reply{Text: "caption", Photo: "gone.jpg", FollowUp: "delayed"}
	if err := p.Deliver(context.Background(), 5, reply); err != nil {
		t.Fatalf("missing media should degrade, got error: %v", err)
	}

	sent := client.sentTexts()
	if len(sent) != 1 {
		t.Fatalf("sent %d texts, expected 1 warning", len(sent))
	}
	if !strings.Contains(sent[0].text, "gone.jpg") || !strings.Contains(sent[0].text, "caption") {
		t.Fatalf("unexpected warning text: %q", sent[0].text)
	}
	if len(sent[0].buttons) != 0 {
		t.Fatalf("warning should carry no buttons: %+v", sent[0])
	}

	// No follow-up after falling back to the warning text.
	time.Sleep(20 * time.Millisecond)
	if got := rec.texts(); len(got) != 0 {
		t.Fatalf("fallback scheduled a follow-up: %v", got)
	}
}

func TestDeliverMediaFallbackUsesPlaceholderWithoutCaption(t *testing.T) {
	client := &fakeClient{mediaErr: transport.ErrMediaNotFound}
	p := NewPipeline(client, nil, 0)

	reply := catalog.Reply{Photo: "gone.jpg"}
	if err := p.Deliver(context.Background(), 5, reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := client.sentTexts()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Placeholder message.") {
		t.Fatalf("unexpected warning: %+v", sent)
	}
}

func TestDeliverMediaHardFailureHasNoTextSubstitute(t *testing.T) {
	cause := errors.New("413 payload too large")
	client := &fakeClient{mediaErr: cause}
	p := NewPipeline(client, nil, 0)

	reply := catalog.Reply{Text: "caption", Photo: "big.jpg"}
	err := p.Deliver(context.Background(), 5, reply)
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, expected the transport error", err)
	}
	if sent := client.sentTexts(); len(sent) != 0 {
		t.Fatalf("hard media failure sent a text substitute: %+v", sent)
	}
}

func TestDeliverMediaSuccessKeepsFollowUp(t *testing.T) {
	client := &fakeClient{}
	rec := newSendRecorder(1)
	sched := NewScheduler(rec.send)
	defer sched.Close()
	p := NewPipeline(client, sched, time.Millisecond)

	reply := catalog.Reply{Text: "caption", Document: "guide.pdf", FollowUp: "delayed"}
	if err := p.Deliver(context.Background(), 5, reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFired(t, rec)

	if got := rec.texts(); len(got) != 1 || got[0] != "delayed" {
		t.Fatalf("unexpected follow-up sends: %v", got)
	}
	if len(client.media) != 1 || client.media[0].media.Kind != catalog.MediaDocument {
		t.Fatalf("unexpected media sends: %+v", client.media)
	}
}
