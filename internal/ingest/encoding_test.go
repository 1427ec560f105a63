package ingest

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestDecodeTextUTF8(t *testing.T) {
	got, err := decodeText([]byte("川越市の地域情報"))
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != "川越市の地域情報" {
		t.Errorf("got %q", got)
	}
}

func TestDecodeTextStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("テスト")...)
	got, err := decodeText(data)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != "テスト" {
		t.Errorf("BOM not stripped: %q", got)
	}
}

func TestDecodeTextShiftJIS(t *testing.T) {
	original := "埼玉県川越市の防災情報です。"
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(original))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	got, err := decodeText(encoded)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != original {
		t.Errorf("got %q, want %q", got, original)
	}
}

func TestDecodeTextEUCJP(t *testing.T) {
	original := "小学校の通学区域について。"
	encoded, err := japanese.EUCJP.NewEncoder().Bytes([]byte(original))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	got, err := decodeText(encoded)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != original {
		t.Errorf("got %q, want %q", got, original)
	}
}
