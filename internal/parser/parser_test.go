package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const domainSummaryText = "[DOMAIN_SUMMARY]\n" +
	"Domain: Health / Body\n" +
	"Current state: Doing okay\n" +
	"What's working: Regular walks\n" +
	"What's not working: Poor sleep\n" +
	"Key tension: Work-life balance\n" +
	"Stated intention: Fix sleep schedule\n" +
	"Status: stable\n" +
	"[/DOMAIN_SUMMARY]"

func TestParseMessage_DomainSummary(t *testing.T) {
	segments := ParseMessage("Here is my read on that area.\n" + domainSummaryText + "\nWant to go deeper?")

	require.Len(t, segments, 3)
	assert.Equal(t, SegmentText, segments[0].Kind)
	assert.Equal(t, SegmentBlock, segments[1].Kind)
	assert.Equal(t, SegmentText, segments[2].Kind)

	ds, ok := segments[1].Block.(*DomainSummary)
	require.True(t, ok)
	assert.Equal(t, "Health / Body", ds.Domain)
	assert.Equal(t, "Doing okay", ds.CurrentState)
	assert.Equal(t, []string{"Regular walks"}, ds.WhatsWorking)
	assert.Equal(t, []string{"Poor sleep"}, ds.WhatsNotWorking)
	assert.Equal(t, "Work-life balance", ds.KeyTension)
	assert.Equal(t, "Fix sleep schedule", ds.StatedIntention)
	assert.Equal(t, "stable", ds.Status)
}

func TestParseMessage_TextOnly(t *testing.T) {
	segments := ParseMessage("Just a plain reply with no blocks.")
	require.Len(t, segments, 1)
	assert.Equal(t, SegmentText, segments[0].Kind)
	assert.Equal(t, "Just a plain reply with no blocks.", segments[0].Text)
}

func TestParseMessage_Empty(t *testing.T) {
	assert.Empty(t, ParseMessage(""))
}

func TestParseMessage_UnterminatedDegradesToText(t *testing.T) {
	input := "Some intro\n[DOMAIN_SUMMARY]\nDomain: Career\nno close tag here"
	segments := ParseMessage(input)

	require.Len(t, segments, 1)
	assert.Equal(t, SegmentText, segments[0].Kind)
	assert.Equal(t, input, segments[0].Text)
}

func TestParseMessage_UnterminatedAfterCompleteBlock(t *testing.T) {
	input := domainSummaryText + "\n[SESSION_SUMMARY]\nDate: 2026-03-01"
	segments := ParseMessage(input)

	// One malformed block poisons the whole message rather than silently
	// dropping the tail.
	require.Len(t, segments, 1)
	assert.Equal(t, SegmentText, segments[0].Kind)
	assert.Equal(t, input, segments[0].Text)
}

func TestParseMessage_MultipleBlocksOrdered(t *testing.T) {
	input := "a\n" + domainSummaryText + "\nb\n" +
		"[SUGGESTED_REPLIES]\nReplies: Tell me more, Skip for now\n[/SUGGESTED_REPLIES]\nc"
	segments := ParseMessage(input)

	require.Len(t, segments, 5)
	assert.Equal(t, BlockDomainSummary, segments[1].Block.BlockType())
	assert.Equal(t, BlockSuggestedReplies, segments[3].Block.BlockType())

	sr := segments[3].Block.(*SuggestedReplies)
	assert.Equal(t, []string{"Tell me more", "Skip for now"}, sr.Replies)
}

func TestStatusFallback(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"thriving", "thriving"},
		{"THRIVING", "thriving"},
		{"Needs_Attention", "needs_attention"},
		{"in_crisis", "in_crisis"},
		{"stable", "stable"},
		{"flourishing", "stable"},
		{"", "stable"},
		{"n/a", "stable"},
	}

	for _, tt := range tests {
		input := "[DOMAIN_SUMMARY]\nDomain: X\nStatus: " + tt.value + "\n[/DOMAIN_SUMMARY]"
		blocks := Blocks(input)
		require.Len(t, blocks, 1, "status %q", tt.value)
		assert.Equal(t, tt.want, blocks[0].(*DomainSummary).Status, "status %q", tt.value)
	}
}

func TestUnknownKeysIgnoredAndMissingKeysDefault(t *testing.T) {
	input := "[DOMAIN_SUMMARY]\nDomain: Money\nMystery key: whatever\n[/DOMAIN_SUMMARY]"
	blocks := Blocks(input)
	require.Len(t, blocks, 1)

	ds := blocks[0].(*DomainSummary)
	assert.Equal(t, "Money", ds.Domain)
	assert.Empty(t, ds.CurrentState)
	assert.Empty(t, ds.WhatsWorking)
	assert.Equal(t, "stable", ds.Status)
}

func TestNumericFieldLenient(t *testing.T) {
	tests := []struct {
		value string
		want  *float64
	}{
		{"7", f64(7)},
		{"7.5", f64(7.5)},
		{"7 / 10", f64(7)},
		{"low", nil},
		{"", nil},
	}

	for _, tt := range tests {
		input := "[SESSION_SUMMARY]\nEnergy level: " + tt.value + "\n[/SESSION_SUMMARY]"
		blocks := Blocks(input)
		require.Len(t, blocks, 1, "value %q", tt.value)

		got := blocks[0].(*SessionSummary).EnergyLevel
		if tt.want == nil {
			assert.Nil(t, got, "value %q", tt.value)
		} else {
			require.NotNil(t, got, "value %q", tt.value)
			assert.Equal(t, *tt.want, *got, "value %q", tt.value)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	blocks := []Block{
		&DomainSummary{
			Domain:          "Health / Body",
			CurrentState:    "Doing okay",
			WhatsWorking:    []string{"Regular walks", "Better meals"},
			WhatsNotWorking: []string{"Poor sleep"},
			KeyTension:      "Work-life balance",
			StatedIntention: "Fix sleep schedule",
			Status:          "needs_attention",
		},
		&LifeMapSynthesis{
			Narrative:                "A season of consolidation",
			PrimaryCompoundingEngine: "Morning writing habit",
			QuarterlyPriorities:      []string{"Ship the book", "Rebuild savings"},
			KeyTensions:              []string{"Depth vs breadth"},
			AntiGoals:                []string{"No new commitments"},
		},
		&SessionSummary{
			Date:             "2026-03-01",
			Sentiment:        "hopeful",
			EnergyLevel:      f64(6),
			KeyThemes:        []string{"rest", "focus"},
			Commitments:      []string{"sleep by 11"},
			LifeMapUpdates:   []string{"health"},
			PatternsObserved: []string{"late-night scrolling"},
		},
		&IntentionCard{Intention: "Write daily", Timeframe: "this month", Why: "momentum"},
		&DayPlanData{Date: "2026-03-02", TopPriorities: []string{"deep work", "gym"}, Schedule: "front-loaded", EnergyBudget: f64(8)},
		&ReflectionPrompt{Prompt: "What drained you today?", Context: "evening review"},
		&SuggestedReplies{Replies: []string{"Yes", "Not now"}},
		&DocumentUpdate{FileType: "domain", Name: "Health / Body", Summary: "updated status"},
	}

	for _, want := range blocks {
		parsed := Blocks(Serialize(want))
		require.Len(t, parsed, 1, "type %s", want.BlockType())
		assert.Equal(t, want, parsed[0], "type %s", want.BlockType())
	}
}

func TestContainsBlock(t *testing.T) {
	text := "prose\n" + domainSummaryText
	assert.True(t, ContainsBlock(text, BlockDomainSummary))
	assert.False(t, ContainsBlock(text, BlockSessionSummary))
}

func TestContinuationLines(t *testing.T) {
	input := "[LIFE_MAP_SYNTHESIS]\nNarrative: the year started slow\nbut picked up in spring\n[/LIFE_MAP_SYNTHESIS]"
	blocks := Blocks(input)
	require.Len(t, blocks, 1)
	assert.Equal(t, "the year started slow but picked up in spring",
		blocks[0].(*LifeMapSynthesis).Narrative)
}

func TestParseMessage_LargeInput(t *testing.T) {
	// A long message with a block buried in the middle parses cleanly.
	filler := strings.Repeat("lorem ipsum ", 500)
	segments := ParseMessage(filler + domainSummaryText + filler)
	require.Len(t, segments, 3)
	assert.Equal(t, SegmentBlock, segments[1].Kind)
}

func f64(v float64) *float64 { return &v }
