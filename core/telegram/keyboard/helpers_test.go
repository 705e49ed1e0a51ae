package keyboard

import "testing"

func TestLabelButtonsOnePerRow(t *testing.T) {
	markup := LabelButtons([]string{"Option A", "Option B", "Register"})

	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, expected 3", len(markup.InlineKeyboard))
	}
	for i, row := range markup.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("row %d has %d buttons, expected 1", i, len(row))
		}
		if row[0].Text != row[0].Data {
			t.Fatalf("row %d: data %q does not mirror label %q", i, row[0].Data, row[0].Text)
		}
	}
	if markup.InlineKeyboard[2][0].Text != "Register" {
		t.Fatalf("unexpected last label: %q", markup.InlineKeyboard[2][0].Text)
	}
}

func TestInlineButtonsRows(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "Yes", Data: "yes"}, {Text: "No", Data: "no"}},
		[]InlineBtn{{Text: "Back", Data: "back"}},
	)

	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, expected 2", len(markup.InlineKeyboard))
	}
	if len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected row widths: %v", markup.InlineKeyboard)
	}
	if markup.InlineKeyboard[0][1].Data != "no" {
		t.Fatalf("unexpected data: %q", markup.InlineKeyboard[0][1].Data)
	}
}

func TestLabelButtonsEmpty(t *testing.T) {
	markup := LabelButtons(nil)
	if len(markup.InlineKeyboard) != 0 {
		t.Fatalf("expected no rows, got %v", markup.InlineKeyboard)
	}
}
