package casefold

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"ABC[]|": "abc{}\\",
		"Alice":  "alice",
		"":       "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("abc[]|", "ABC{}\\") {
		t.Error("expected fold-equal")
	}
	if Equal("abc", "abcd") {
		t.Error("different lengths must not be equal")
	}
	if Equal("nick", "n1ck") {
		t.Error("distinct strings must not be equal")
	}
}

func TestMatchStar(t *testing.T) {
	if !Match("*", "") {
		t.Error(`"*" must match ""`)
	}
	if !Match("*", "anything at all") {
		t.Error(`"*" must match anything`)
	}
	if !Match("**", "x") {
		t.Error("redundant stars should still match")
	}
}

func TestMatchEmptyPattern(t *testing.T) {
	if !Match("", "") {
		t.Error("empty pattern must match empty text")
	}
	if Match("", "x") {
		t.Error("empty pattern must not match non-empty text")
	}
}

func TestMatchQuestion(t *testing.T) {
	if !Match("a?c", "abc") {
		t.Error("? should match a single character")
	}
	if Match("a?c", "ac") {
		t.Error("? requires exactly one character")
	}
	if Match("a?c", "abbc") {
		t.Error("? must not match more than one character")
	}
}

func TestMatchGlobAndCaseFold(t *testing.T) {
	if !Match("*!*@bhost", "bob!bob@BHOST") {
		t.Error("ban mask match should fold case on the host")
	}
	if !Match("nick!*@*", "NICK!user@host.example") {
		t.Error("ban mask match should fold case on the nick")
	}
	if Match("alice!*@*", "bob!user@host") {
		t.Error("mismatched nick should not match")
	}
}

func TestMatchBacktracking(t *testing.T) {
	// The text has two 'b's: matching "bc" at the first one leaves "bc"
	// unconsumed, so the matcher must backtrack past it and succeed at the
	// second one.
	if !Match("*bc", "abcbc") {
		t.Error("expected backtracking match to succeed")
	}
	if Match("*bd", "abcbc") {
		t.Error("pattern requiring trailing 'd' must not match")
	}
}

func TestFoldedMonotonicity(t *testing.T) {
	if !Match("*", "#channel") {
		t.Error(`"*" must match any channel name`)
	}
	if !Match("*", "") {
		t.Error(`"*" must match empty string`)
	}
	if Match("a*", "") {
		t.Error("non-star-only pattern must not match empty text")
	}
}
