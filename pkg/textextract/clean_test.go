package textextract

import (
	"strings"
	"testing"
)

func TestCleanStripsPageBanners(t *testing.T) {
	in := "The appellant was convicted.\nPage 3 of 12\nThe High Court reversed.\n- 4 -\nWe disagree."
	out := Clean(in)
	if strings.Contains(out, "Page 3") || strings.Contains(out, "- 4 -") {
		t.Errorf("page banners survived: %q", out)
	}
	if !strings.Contains(out, "The appellant was convicted.") || !strings.Contains(out, "We disagree.") {
		t.Errorf("body text lost: %q", out)
	}
}

func TestCleanJoinsHyphenatedLineBreaks(t *testing.T) {
	out := Clean("the respon-\ndent argued")
	if !strings.Contains(out, "respondent") {
		t.Errorf("hyphenated word not joined: %q", out)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	out := Clean("one   two\t\tthree\n\n\n\n\nfour\r\nfive")
	if strings.Contains(out, "  ") {
		t.Errorf("runs of spaces survived: %q", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("blank-line runs survived: %q", out)
	}
	if strings.Contains(out, "\r") {
		t.Errorf("carriage returns survived: %q", out)
	}
}

func TestCleanRemovesControlCharacters(t *testing.T) {
	out := Clean("order\x00 of\x0b the\x1f court")
	if out != "order of the court" {
		t.Errorf("got %q", out)
	}
}

func TestExtractTXTCountsWords(t *testing.T) {
	data := strings.NewReader("the quick brown fox jumps")
	res, err := Extract(data, int64(data.Len()), "txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Words != 5 || res.Pages != 1 || res.Method != "txt" {
		t.Errorf("result = %+v", res)
	}
}

func TestExtractRejectsUnknownType(t *testing.T) {
	data := strings.NewReader("x")
	if _, err := Extract(data, 1, "epub"); err == nil {
		t.Fatal("unknown type accepted")
	}
}
