package provider

import "github.com/espbridge/espbridge/core/mail"

// Feature names a message capability for warning lists and strict-mode
// errors.
type Feature string

const (
	FeatureBatchMerge        Feature = "per-recipient merge data"
	FeatureTemplates         Feature = "provider-hosted templates"
	FeatureAttachments       Feature = "attachments"
	FeatureInlineAttachments Feature = "inline attachments"
	FeatureOpenTracking      Feature = "open tracking"
	FeatureClickTracking     Feature = "click tracking"
	FeatureMultipleTags      Feature = "multiple tags"
	FeatureMetadata          Feature = "metadata"
	FeatureCustomHeaders     Feature = "custom headers"
)

// Capabilities is a static declaration of which canonical message features
// a provider supports. Defined once at provider construction; never
// mutated afterwards.
type Capabilities struct {
	// BatchMerge: one payload can carry per-recipient substitution data.
	// Without it the dispatcher fans merge sends out into N
	// single-recipient calls.
	BatchMerge        bool
	Templates         bool
	Attachments       bool
	InlineAttachments bool
	OpenTracking      bool
	ClickTracking     bool
	// MultipleTags: more than one correlation tag per message.
	MultipleTags  bool
	Metadata      bool
	CustomHeaders bool
	// PerRecipientStatus: send responses resolve each recipient
	// individually rather than one whole-call verdict.
	PerRecipientStatus bool
	// MaxRecipients is the provider's single-call recipient limit; the
	// dispatcher splits larger messages. Zero means unlimited.
	MaxRecipients int
}

// Unsupported returns the message features not covered by the
// capabilities, in a stable order. An empty result means the message can
// be encoded without degradation.
func (c Capabilities) Unsupported(msg *mail.Message) []Feature {
	var missing []Feature
	if msg.HasMergeData() && !c.BatchMerge {
		missing = append(missing, FeatureBatchMerge)
	}
	if msg.TemplateID != "" && !c.Templates {
		missing = append(missing, FeatureTemplates)
	}
	if len(msg.Attachments) > 0 && !c.Attachments {
		missing = append(missing, FeatureAttachments)
	}
	if msg.HasInlineAttachments() && c.Attachments && !c.InlineAttachments {
		missing = append(missing, FeatureInlineAttachments)
	}
	if msg.TrackOpens != mail.TrackDefault && !c.OpenTracking {
		missing = append(missing, FeatureOpenTracking)
	}
	if msg.TrackClicks != mail.TrackDefault && !c.ClickTracking {
		missing = append(missing, FeatureClickTracking)
	}
	if len(msg.Tags) > 1 && !c.MultipleTags {
		missing = append(missing, FeatureMultipleTags)
	}
	if len(msg.Metadata) > 0 && !c.Metadata {
		missing = append(missing, FeatureMetadata)
	}
	if len(msg.Headers()) > 0 && !c.CustomHeaders {
		missing = append(missing, FeatureCustomHeaders)
	}
	return missing
}

// CheckFeatures applies the strictness policy to the unsupported feature
// set: strict mode fails on the first unsupported feature, best-effort
// returns the dropped features as warnings. BatchMerge is excluded here;
// merge fan-out is a dispatcher policy, not an encoding degradation.
func CheckFeatures(caps Capabilities, msg *mail.Message, strictness Strictness) ([]string, error) {
	var warnings []string
	for _, f := range caps.Unsupported(msg) {
		if f == FeatureBatchMerge {
			continue
		}
		if strictness == StrictMode {
			return nil, NewUnsupportedFeatureError(f)
		}
		warnings = append(warnings, string(f))
	}
	return warnings, nil
}

// NewUnsupportedFeatureError wraps ErrUnsupportedFeature with the feature
// name for strict-mode failures.
func NewUnsupportedFeatureError(f Feature) error {
	return &unsupportedFeatureError{feature: f}
}

type unsupportedFeatureError struct {
	feature Feature
}

func (e *unsupportedFeatureError) Error() string {
	return "feature not supported by provider: " + string(e.feature)
}

func (e *unsupportedFeatureError) Unwrap() error {
	return ErrUnsupportedFeature
}
