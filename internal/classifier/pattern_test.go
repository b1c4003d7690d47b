package classifier

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClassifyIntents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantIntent Intent
	}{
		{name: "what tags do i have", text: "what tags do I have?", wantIntent: IntentListTags},
		{name: "list my tags", text: "list my tags", wantIntent: IntentListTags},
		{name: "show all tasks", text: "show all tasks", wantIntent: IntentList},
		{name: "list me my tasks", text: "list me my tasks", wantIntent: IntentList},
		{name: "explicit filter", text: "show tasks tagged with work", wantIntent: IntentList},
		{name: "implicit filter", text: "show my urgent tasks", wantIntent: IntentList},
		{name: "create", text: "add task buy milk", wantIntent: IntentCreate},
		{name: "create with filler", text: "create a new task called water plants", wantIntent: IntentCreate},
		{name: "add tag", text: "tag this as urgent", wantIntent: IntentAddTag},
		{name: "remove tag", text: "remove the urgent tag", wantIntent: IntentRemoveTag},
		{name: "remove all", text: "remove all tags", wantIntent: IntentRemoveTag},
		{name: "complete", text: "mark this as done", wantIntent: IntentComplete},
		{name: "delete", text: "delete this task", wantIntent: IntentDelete},
		{name: "unrelated", text: "what is the weather like", wantIntent: IntentUnknown},
	}

	c := NewPatternClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify(tt.text)
			if got.Intent != tt.wantIntent {
				t.Errorf("Classify(%q).Intent = %s, want %s", tt.text, got.Intent, tt.wantIntent)
			}
		})
	}
}

func TestClassifyImplicitFilterSplitsAdjectives(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("show me all my urgent work tasks")

	if got.Intent != IntentList {
		t.Fatalf("Intent = %s, want list", got.Intent)
	}
	if !reflect.DeepEqual(got.Tags, []string{"urgent", "work"}) {
		t.Errorf("Tags = %v, want [urgent work]", got.Tags)
	}
	if got.Source != SourceImplicit {
		t.Errorf("Source = %s, want implicit", got.Source)
	}
	if !almostEqual(got.Confidence, 0.8) {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
}

func TestClassifyImplicitSingleTag(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("show my work tasks")

	if !reflect.DeepEqual(got.Tags, []string{"work"}) {
		t.Fatalf("Tags = %v, want [work]", got.Tags)
	}
	if !almostEqual(got.Confidence, 0.7) {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
}

func TestClassifyExplicitFilter(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("show tasks tagged with work and urgent")

	if got.Intent != IntentList {
		t.Fatalf("Intent = %s, want list", got.Intent)
	}
	if !reflect.DeepEqual(got.Tags, []string{"work", "urgent"}) {
		t.Errorf("Tags = %v, want [work urgent]", got.Tags)
	}
	if got.Source != SourceExplicit {
		t.Errorf("Source = %s, want explicit", got.Source)
	}
	if got.Confidence < 0.9 {
		t.Errorf("explicit extraction should score at least 0.9, got %v", got.Confidence)
	}
}

func TestClassifyCreateExtractsTitleAndTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantTitle string
		wantTags  []string
	}{
		{
			name:      "title with clause",
			text:      "add task buy milk tagged with home and errands",
			wantTitle: "buy milk",
			wantTags:  []string{"home", "errands"},
		},
		{
			name:      "no tags",
			text:      "add task to follow up with the dentist",
			wantTitle: "follow up with the dentist",
			wantTags:  nil,
		},
		{
			name:      "tags colon form",
			text:      "create task write report tags: work, urgent",
			wantTitle: "write report",
			wantTags:  []string{"work", "urgent"},
		},
	}

	c := NewPatternClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify(tt.text)
			if got.Intent != IntentCreate {
				t.Fatalf("Intent = %s, want create", got.Intent)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", got.Tags, tt.wantTags)
			}
		})
	}
}

func TestClassifyAddTagJoinsMultiWordPieces(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("tag this as urgent and follow up")

	if got.Intent != IntentAddTag {
		t.Fatalf("Intent = %s, want add_tag", got.Intent)
	}
	if !reflect.DeepEqual(got.Tags, []string{"urgent", "follow-up"}) {
		t.Errorf("Tags = %v, want [urgent follow-up]", got.Tags)
	}
}

func TestClassifyRemoveAllWinsOverRemoveTag(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("remove all the tags from this task")

	if got.Intent != IntentRemoveTag || !got.RemoveAll {
		t.Fatalf("expected remove_tag with RemoveAll, got %+v", got)
	}
	if len(got.Tags) != 0 {
		t.Errorf("RemoveAll extraction should carry no tag list, got %v", got.Tags)
	}
}

func TestClassifyCompletionStatusFilter(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()

	got := c.Classify("show completed tasks")
	if got.Intent != IntentList {
		t.Fatalf("Intent = %s, want list", got.Intent)
	}
	if got.Completed == nil || !*got.Completed {
		t.Error("expected completed=true filter")
	}
	if len(got.Tags) != 0 {
		t.Errorf("status words are not tags, got %v", got.Tags)
	}

	got = c.Classify("show pending work tasks")
	if got.Completed == nil || *got.Completed {
		t.Error("expected completed=false filter")
	}
	if !reflect.DeepEqual(got.Tags, []string{"work"}) {
		t.Errorf("Tags = %v, want [work]", got.Tags)
	}
}

func TestClassifyInvalidExplicitTag(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("show tasks tagged with work_stuff")

	if len(got.Tags) != 0 {
		t.Errorf("underscored tag should not validate, got %v", got.Tags)
	}
	if len(got.InvalidTags) != 1 {
		t.Errorf("invalid candidate should be reported, got %v", got.InvalidTags)
	}
}

func TestClassifyUnknownConfidence(t *testing.T) {
	t.Parallel()

	c := NewPatternClassifier()
	got := c.Classify("tell me a joke")

	if got.Intent != IntentUnknown {
		t.Fatalf("Intent = %s, want unknown", got.Intent)
	}
	if !almostEqual(got.Confidence, 0.3) {
		t.Errorf("Confidence = %v, want 0.3", got.Confidence)
	}
}

func TestConfidenceRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int
		fn    func(int) float64
		min   float64
		max   float64
	}{
		{count: 0, fn: explicitConfidence, min: 0.9, max: 0.9},
		{count: 1, fn: explicitConfidence, min: 1.0, max: 1.0},
		{count: 5, fn: explicitConfidence, min: 1.0, max: 1.0},
		{count: 0, fn: implicitConfidence, min: 0.5, max: 0.5},
		{count: 1, fn: implicitConfidence, min: 0.7, max: 0.7},
		{count: 2, fn: implicitConfidence, min: 0.8, max: 0.8},
		{count: 9, fn: implicitConfidence, min: 0.8, max: 0.85},
	}

	for _, tt := range tests {
		got := tt.fn(tt.count)
		if got < tt.min-1e-9 || got > tt.max+1e-9 {
			t.Errorf("confidence(%d) = %v, want within [%v, %v]", tt.count, got, tt.min, tt.max)
		}
	}
}
