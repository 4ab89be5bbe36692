// Package parser converts model output into display segments and typed
// structured blocks. All entry points are pure functions of the input
// buffer: the parser performs no I/O and holds no state between calls.
package parser

import (
	"fmt"
	"strings"
)

// BlockType identifies a structured block kind.
type BlockType string

const (
	BlockDomainSummary    BlockType = "domain_summary"
	BlockLifeMapSynthesis BlockType = "life_map_synthesis"
	BlockSessionSummary   BlockType = "session_summary"
	BlockDocumentUpdate   BlockType = "document_update"
	BlockSuggestedReplies BlockType = "suggested_replies"
	BlockIntentionCard    BlockType = "intention_card"
	BlockDayPlanData      BlockType = "day_plan_data"
	BlockReflectionPrompt BlockType = "reflection_prompt"
)

// tagDef pairs a block type with its literal open and close markers.
type tagDef struct {
	typ   BlockType
	open  string
	close string
}

// tagDefs is the fixed, ordered tag vocabulary. Markers are case-sensitive.
var tagDefs = []tagDef{
	{BlockDomainSummary, "[DOMAIN_SUMMARY]", "[/DOMAIN_SUMMARY]"},
	{BlockLifeMapSynthesis, "[LIFE_MAP_SYNTHESIS]", "[/LIFE_MAP_SYNTHESIS]"},
	{BlockSessionSummary, "[SESSION_SUMMARY]", "[/SESSION_SUMMARY]"},
	{BlockDocumentUpdate, "[DOCUMENT_UPDATE]", "[/DOCUMENT_UPDATE]"},
	{BlockSuggestedReplies, "[SUGGESTED_REPLIES]", "[/SUGGESTED_REPLIES]"},
	{BlockIntentionCard, "[INTENTION_CARD]", "[/INTENTION_CARD]"},
	{BlockDayPlanData, "[DAY_PLAN_DATA]", "[/DAY_PLAN_DATA]"},
	{BlockReflectionPrompt, "[REFLECTION_PROMPT]", "[/REFLECTION_PROMPT]"},
}

// Block is a parsed structured block.
type Block interface {
	BlockType() BlockType
}

// DomainSummary captures the model's assessment of one life domain.
type DomainSummary struct {
	Domain          string   `json:"domain"`
	CurrentState    string   `json:"currentState"`
	WhatsWorking    []string `json:"whatsWorking"`
	WhatsNotWorking []string `json:"whatsNotWorking"`
	KeyTension      string   `json:"keyTension"`
	StatedIntention string   `json:"statedIntention"`
	Status          string   `json:"status"`
}

func (*DomainSummary) BlockType() BlockType { return BlockDomainSummary }

// LifeMapSynthesis is the cross-domain synthesis produced at the end of a
// mapping session.
type LifeMapSynthesis struct {
	Narrative                string   `json:"narrative"`
	PrimaryCompoundingEngine string   `json:"primaryCompoundingEngine"`
	QuarterlyPriorities      []string `json:"quarterlyPriorities"`
	KeyTensions              []string `json:"keyTensions"`
	AntiGoals                []string `json:"antiGoals"`
}

func (*LifeMapSynthesis) BlockType() BlockType { return BlockLifeMapSynthesis }

// SessionSummary is the recap block emitted at the end of a check-in.
type SessionSummary struct {
	Date             string   `json:"date"`
	Sentiment        string   `json:"sentiment"`
	EnergyLevel      *float64 `json:"energyLevel"`
	KeyThemes        []string `json:"keyThemes"`
	Commitments      []string `json:"commitments"`
	LifeMapUpdates   []string `json:"lifeMapUpdates"`
	PatternsObserved []string `json:"patternsObserved"`
}

func (*SessionSummary) BlockType() BlockType { return BlockSessionSummary }

// DocumentUpdate announces a document the model has written or intends to
// write, for display purposes.
type DocumentUpdate struct {
	FileType string `json:"fileType"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
}

func (*DocumentUpdate) BlockType() BlockType { return BlockDocumentUpdate }

// SuggestedReplies offers quick-reply options to render under the message.
type SuggestedReplies struct {
	Replies []string `json:"replies"`
}

func (*SuggestedReplies) BlockType() BlockType { return BlockSuggestedReplies }

// IntentionCard is a single intention the user committed to.
type IntentionCard struct {
	Intention string `json:"intention"`
	Timeframe string `json:"timeframe"`
	Why       string `json:"why"`
}

func (*IntentionCard) BlockType() BlockType { return BlockIntentionCard }

// DayPlanData is the structured payload of an open-day plan.
type DayPlanData struct {
	Date          string   `json:"date"`
	TopPriorities []string `json:"topPriorities"`
	Schedule      string   `json:"schedule"`
	EnergyBudget  *float64 `json:"energyBudget"`
}

func (*DayPlanData) BlockType() BlockType { return BlockDayPlanData }

// ReflectionPrompt is a prompt the model wants surfaced to the user later.
type ReflectionPrompt struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

func (*ReflectionPrompt) BlockType() BlockType { return BlockReflectionPrompt }

// decodeBlock builds a typed block from a parsed field set. Unknown keys
// are ignored and missing keys default to empty values.
func decodeBlock(typ BlockType, f fields) Block {
	switch typ {
	case BlockDomainSummary:
		return &DomainSummary{
			Domain:          f.get("domain"),
			CurrentState:    f.get("current state"),
			WhatsWorking:    f.list("what's working"),
			WhatsNotWorking: f.list("what's not working"),
			KeyTension:      f.get("key tension"),
			StatedIntention: f.get("stated intention"),
			Status:          f.status("status"),
		}
	case BlockLifeMapSynthesis:
		return &LifeMapSynthesis{
			Narrative:                f.get("narrative"),
			PrimaryCompoundingEngine: f.get("primary compounding engine"),
			QuarterlyPriorities:      f.list("quarterly priorities"),
			KeyTensions:              f.list("key tensions"),
			AntiGoals:                f.list("anti-goals"),
		}
	case BlockSessionSummary:
		return &SessionSummary{
			Date:             f.get("date"),
			Sentiment:        f.get("sentiment"),
			EnergyLevel:      f.number("energy level"),
			KeyThemes:        f.list("key themes"),
			Commitments:      f.list("commitments"),
			LifeMapUpdates:   f.list("life map updates"),
			PatternsObserved: f.list("patterns observed"),
		}
	case BlockDocumentUpdate:
		return &DocumentUpdate{
			FileType: f.get("file type"),
			Name:     f.get("name"),
			Summary:  f.get("summary"),
		}
	case BlockSuggestedReplies:
		return &SuggestedReplies{
			Replies: f.list("replies"),
		}
	case BlockIntentionCard:
		return &IntentionCard{
			Intention: f.get("intention"),
			Timeframe: f.get("timeframe"),
			Why:       f.get("why"),
		}
	case BlockDayPlanData:
		return &DayPlanData{
			Date:          f.get("date"),
			TopPriorities: f.list("top priorities"),
			Schedule:      f.get("schedule"),
			EnergyBudget:  f.number("energy budget"),
		}
	case BlockReflectionPrompt:
		return &ReflectionPrompt{
			Prompt:  f.get("prompt"),
			Context: f.get("context"),
		}
	}
	return nil
}

// Serialize renders a block back into its tagged text form. It is the
// inverse of parsing modulo list and whitespace normalization.
func Serialize(b Block) string {
	var def tagDef
	for _, d := range tagDefs {
		if d.typ == b.BlockType() {
			def = d
			break
		}
	}

	var sb strings.Builder
	sb.WriteString(def.open)
	sb.WriteString("\n")

	line := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, value)
		}
	}
	listLine := func(key string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(&sb, "%s: %s\n", key, strings.Join(values, ", "))
		}
	}
	numLine := func(key string, v *float64) {
		if v != nil {
			fmt.Fprintf(&sb, "%s: %g\n", key, *v)
		}
	}

	switch v := b.(type) {
	case *DomainSummary:
		line("Domain", v.Domain)
		line("Current state", v.CurrentState)
		listLine("What's working", v.WhatsWorking)
		listLine("What's not working", v.WhatsNotWorking)
		line("Key tension", v.KeyTension)
		line("Stated intention", v.StatedIntention)
		line("Status", v.Status)
	case *LifeMapSynthesis:
		line("Narrative", v.Narrative)
		line("Primary compounding engine", v.PrimaryCompoundingEngine)
		listLine("Quarterly priorities", v.QuarterlyPriorities)
		listLine("Key tensions", v.KeyTensions)
		listLine("Anti-goals", v.AntiGoals)
	case *SessionSummary:
		line("Date", v.Date)
		line("Sentiment", v.Sentiment)
		numLine("Energy level", v.EnergyLevel)
		listLine("Key themes", v.KeyThemes)
		listLine("Commitments", v.Commitments)
		listLine("Life map updates", v.LifeMapUpdates)
		listLine("Patterns observed", v.PatternsObserved)
	case *DocumentUpdate:
		line("File type", v.FileType)
		line("Name", v.Name)
		line("Summary", v.Summary)
	case *SuggestedReplies:
		listLine("Replies", v.Replies)
	case *IntentionCard:
		line("Intention", v.Intention)
		line("Timeframe", v.Timeframe)
		line("Why", v.Why)
	case *DayPlanData:
		line("Date", v.Date)
		listLine("Top priorities", v.TopPriorities)
		line("Schedule", v.Schedule)
		numLine("Energy budget", v.EnergyBudget)
	case *ReflectionPrompt:
		line("Prompt", v.Prompt)
		line("Context", v.Context)
	}

	sb.WriteString(def.close)
	return sb.String()
}
