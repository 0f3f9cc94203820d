package story

import (
	"reflect"
	"strings"
	"testing"
)

// newest-first helper
func hist(texts ...string) []Message {
	msgs := make([]Message, len(texts))
	for i, tx := range texts {
		msgs[i] = Message{ID: int64(len(texts) - i), Text: tx}
	}
	return msgs
}

func TestBuild_SingleBlockChronological(t *testing.T) {
	// history is newest-first: "end" was posted last
	blocks := Build(hist("end", "middle", "once"))

	want := []Block{{Title: "Story so far", Body: "once middle end"}}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("Build = %+v, want %+v", blocks, want)
	}
}

func TestBuild_UnderBudgetSingleBlock(t *testing.T) {
	msgs := []Message{
		{ID: 3, Text: strings.Repeat("c", 30)},
		{ID: 2, Text: strings.Repeat("b", 20)},
		{ID: 1, Text: strings.Repeat("a", 10)},
	}
	blocks := Build(msgs)

	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Title != "Story so far" {
		t.Errorf("title = %q, want Story so far", blocks[0].Title)
	}
	wantBody := strings.Repeat("a", 10) + " " + strings.Repeat("b", 20) + " " + strings.Repeat("c", 30)
	if blocks[0].Body != wantBody {
		t.Errorf("body = %q, want %q", blocks[0].Body, wantBody)
	}
}

func TestBuild_TerminatorStopsWalk(t *testing.T) {
	blocks := Build(hist("new", ".", "old", "older"))

	want := []Block{{Title: "Story so far", Body: "new"}}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("messages past the terminator leaked in: %+v", blocks)
	}
}

func TestBuild_TerminatorFirst(t *testing.T) {
	if blocks := Build(hist(".", "old")); blocks != nil {
		t.Errorf("got %+v, want no blocks", blocks)
	}
}

func TestBuild_SkipsBotMessages(t *testing.T) {
	blocks := Build([]Message{
		{ID: 3, Text: "world"},
		{ID: 2, Text: "Story so far: hello", FromBot: true},
		{ID: 1, Text: "hello"},
	})

	want := []Block{{Title: "Story so far", Body: "hello world"}}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("Build = %+v, want %+v", blocks, want)
	}
}

func TestBuild_BudgetSplit(t *testing.T) {
	// each message is 2000 chars; budget trips on the third (2001+2001+2001 > 4096)
	long := strings.Repeat("x", 2000)
	blocks := Build(hist(long, long, long))

	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	// newest pair is flushed first, oldest message lands in the continuation
	if blocks[0].Title != "Story so far" {
		t.Errorf("first title = %q", blocks[0].Title)
	}
	if blocks[1].Title != "continued" {
		t.Errorf("second title = %q", blocks[1].Title)
	}
	if len(blocks[0].Body) != 4001 {
		t.Errorf("first body length = %d, want 4001", len(blocks[0].Body))
	}
	if len(blocks[1].Body) != 2000 {
		t.Errorf("second body length = %d, want 2000", len(blocks[1].Body))
	}
}

func TestBuild_Empty(t *testing.T) {
	if blocks := Build(nil); blocks != nil {
		t.Errorf("Build(nil) = %+v, want nil", blocks)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	msgs := hist("c", "b", "a", ".", "ignored")
	first := Build(msgs)
	second := Build(msgs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ: %+v vs %+v", first, second)
	}
}
