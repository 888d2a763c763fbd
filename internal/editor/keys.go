package editor

import (
	"context"

	"blocknotes/internal/domain"
)

// Key is a key press on a block's text surface.
type Key struct {
	Name  string `json:"key"`
	Shift bool   `json:"shiftKey"`
}

const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeySlash     = "/"
)

// KeyAction is what a key press did.
type KeyAction string

const (
	KeyActionNone     KeyAction = ""
	KeyActionInserted KeyAction = "inserted"
	KeyActionDeleted  KeyAction = "deleted"
	KeyActionTypeMenu KeyAction = "type_menu"
)

// KeyResult tells the caller whether to suppress the default handling of
// the key, and where focus should go.
type KeyResult struct {
	Handled bool      `json:"handled"`
	Action  KeyAction `json:"action"`
	Focus   Ref       `json:"focus"`
}

// KeyDown runs the shared keyboard machine of a text surface:
//
//	Enter (no Shift)   insert a sibling below, except where Enter is a newline
//	Backspace on empty delete the block
//	/                  open the type menu instead of typing a slash
func (e *Editor) KeyDown(ctx context.Context, ref Ref, key Key) (KeyResult, error) {
	e.mu.Lock()
	d, err := e.draftLocked(ref)
	e.mu.Unlock()
	if err != nil {
		return KeyResult{}, err
	}

	switch key.Name {
	case KeySlash:
		if err := e.OpenOverlay(ref, OverlayTypeMenu); err != nil {
			return KeyResult{}, err
		}
		return KeyResult{Handled: true, Action: KeyActionTypeMenu, Focus: ref}, nil

	case KeyEnter:
		if key.Shift || !rendererFor(d.Type).enterInserts() {
			return KeyResult{}, nil
		}
		next, err := e.InsertBelow(ctx, ref)
		if err != nil {
			return KeyResult{Handled: true}, err
		}
		return KeyResult{Handled: true, Action: KeyActionInserted, Focus: next}, nil

	case KeyBackspace:
		if editableText(d) != "" {
			return KeyResult{}, nil
		}
		if err := e.Delete(ctx, ref); err != nil {
			return KeyResult{Handled: true}, err
		}
		return KeyResult{Handled: true, Action: KeyActionDeleted}, nil
	}
	return KeyResult{}, nil
}

// editableText is what the text surface shows: to_do content without its
// marker, raw content otherwise.
func editableText(d draft) string {
	if d.Type == domain.BlockTypeTodo {
		_, text := domain.ParseTodo(d.Content)
		return text
	}
	return d.Content
}
