package protocol

import "testing"

func TestTagString(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{TagSetTopic, "SetTopic"},
		{TagPong, "Pong"},
		{TagInit, "Init"},
		{TagDone, "Done"},
		{TagAppend, "Append"},
		{TagDelete, "Delete"},
		{Tag(6), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.tag.String(); got != tc.want {
			t.Errorf("Tag(%d).String() = %q, want %q", tc.tag, got, tc.want)
		}
	}
}

func TestTagKnown(t *testing.T) {
	for tag := 0; tag < 256; tag++ {
		if got, want := Tag(tag).Known(), tag <= 5; got != want {
			t.Errorf("Tag(%d).Known() = %v", tag, got)
		}
	}
}

func TestPeekTag(t *testing.T) {
	if _, ok := PeekTag([]byte{0, 0, 0}); ok {
		t.Error("PeekTag() on a short frame should fail")
	}
	if tag, ok := PeekTag(EncodeDone(1)); !ok || tag != TagDone {
		t.Errorf("PeekTag() = %v, %v", tag, ok)
	}
}
