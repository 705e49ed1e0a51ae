// Package catalog holds the static mapping from trigger keys (commands,
// button labels, conversation state names) to reply descriptors, plus the
// fixed descriptors that are not part of the catalog itself.
package catalog

import (
	"fmt"
	"sort"

	"contactbot/core/telegram/format"
)

// MediaKind distinguishes the two media flavours a reply may carry.
type MediaKind string

const (
	// MediaPhoto marks an image resource.
	MediaPhoto MediaKind = "photo"
	// MediaDocument marks a generic file resource.
	MediaDocument MediaKind = "document"
)

// Media references a local media resource by file name.
type Media struct {
	Kind MediaKind
	Ref  string
}

// Reply is an immutable descriptor of a single outbound reply: text, optional
// inline buttons (one per row, label doubles as the callback id), optional
// media, and an optional delayed follow-up text.
type Reply struct {
	Text     string
	Buttons  []string
	Photo    string
	Document string
	FollowUp string
}

// Empty reports whether the reply carries neither text nor media.
// Such a descriptor is invalid and must never be dispatched.
func (r Reply) Empty() bool {
	return r.Text == "" && r.Photo == "" && r.Document == ""
}

// Media returns the media reference and true when the reply carries one.
// A photo takes precedence over a document, matching the send order of the
// delivery pipeline.
func (r Reply) Media() (Media, bool) {
	if r.Photo != "" {
		return Media{Kind: MediaPhoto, Ref: r.Photo}, true
	}
	if r.Document != "" {
		return Media{Kind: MediaDocument, Ref: r.Document}, true
	}
	return Media{}, false
}

// Trigger keys present in the default catalog.
const (
	KeyStart           = "/start"
	KeyOptionA         = "Option A"
	KeyOptionB         = "Option B"
	KeyRegister        = "Register"
	KeyAwaitingContact = "AWAITING_CONTACT"
	KeyStepOne         = "sequential_step_1"
	KeyStepTwo         = "sequential_step_2"
	KeyFinalAction     = "final_action"
)

// Catalog is a read-only exact-match lookup table of reply descriptors.
type Catalog struct {
	replies map[string]Reply
}

// New builds a catalog from the provided mapping. The map is copied so the
// catalog stays immutable even if the caller mutates its argument later.
func New(replies map[string]Reply) *Catalog {
	copied := make(map[string]Reply, len(replies))
	for k, v := range replies {
		copied[k] = v
	}
	return &Catalog{replies: copied}
}

// Default returns the built-in conversation catalog.
func Default() *Catalog {
	return New(map[string]Reply{
		KeyStart: {
			Text:    "Hello! Welcome, let's start a conversation!\n\nWhat would you like to do?",
			Buttons: []string{KeyOptionA, KeyOptionB, KeyRegister},
		},
		KeyOptionA: {Text: "You chose Option A. This is the resulting message."},
		KeyOptionB: {Text: "You chose Option B. This is the resulting message."},
		KeyRegister: {
			Text: "To register, please send your Name and Phone number in the format: **John +123456789012**",
		},
		KeyAwaitingContact: {
			Text: "Thank you, I'm expecting your contact details now. Format: Name +PhoneNumber",
		},
		KeyStepOne: {
			Text:    "Answer the first question:",
			Buttons: []string{"Yes", "No"},
		},
		KeyStepTwo: {
			Text:     "Thank you for your answer!",
			FollowUp: "Here is a follow-up message after a short delay.",
		},
		KeyFinalAction: {
			Text: "Test completed. Join our channel: [Link](https://t.me/example)",
		},
	})
}

// Lookup resolves a trigger key to its reply descriptor.
func (c *Catalog) Lookup(key string) (Reply, bool) {
	r, ok := c.replies[key]
	return r, ok
}

// Keys returns all trigger keys in sorted order, used to register one
// callback handler per key at wiring time.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.replies))
	for k := range c.replies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvalidContactReply is the fixed re-prompt sent when structured contact
// input does not validate. The pending state stays untouched so the user may
// retry indefinitely.
func InvalidContactReply() Reply {
	return Reply{Text: "⚠️ Invalid format. Please try again using: **Name +123456789012**"}
}

// RegistrationErrorReply is sent when a validated contact cannot be persisted.
func RegistrationErrorReply() Reply {
	return Reply{Text: "An unexpected error occurred during registration. Try again."}
}

// UnknownInputReply is the fallback for text the engine does not recognize.
func UnknownInputReply() Reply {
	return Reply{Text: "I didn't understand that. Please use the buttons or type /start."}
}

// UnknownOptionReply references the raw callback id of an unrecognized button.
func UnknownOptionReply(callbackID string) Reply {
	return Reply{Text: fmt.Sprintf("Unknown option: `%s`\n\nTry /start", callbackID)}
}

// ContactSavedReply confirms a persisted contact. The user-supplied name is
// escaped so it cannot break the Markdown formatting of the confirmation.
func ContactSavedReply(name, phone string) Reply {
	escaped, err := format.EscapeMarkdown(name, format.MarkdownV1, "")
	if err != nil {
		escaped = name
	}
	return Reply{Text: fmt.Sprintf("✅ Information for **%s** received and saved. Phone: `%s`", escaped, phone)}
}
