package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
)

func fullCaps() provider.Capabilities {
	return provider.Capabilities{
		BatchMerge:         true,
		Templates:          true,
		Attachments:        true,
		InlineAttachments:  true,
		OpenTracking:       true,
		ClickTracking:      true,
		MultipleTags:       true,
		Metadata:           true,
		CustomHeaders:      true,
		PerRecipientStatus: true,
	}
}

func richMessage(t *testing.T) *mail.Message {
	t.Helper()

	msg := &mail.Message{
		From:    mail.Address{Email: "noreply@example.com"},
		Subject: "Hello",
		HTML:    "<p>Hi</p>",
		Recipients: []mail.Recipient{
			{Address: mail.Address{Email: "a@example.com"}, MergeData: map[string]any{"name": "A"}},
		},
		TemplateID:  "welcome",
		Tags:        []string{"onboarding", "welcome"},
		Metadata:    map[string]string{"order": "42"},
		TrackOpens:  mail.TrackOn,
		TrackClicks: mail.TrackOn,
	}
	msg.AttachInline("logo.png", "image/png", []byte{1, 2, 3}, "logo")
	require.NoError(t, msg.SetHeader("X-Campaign", "q3"))
	return msg
}

func TestCapabilities_Unsupported(t *testing.T) {
	t.Parallel()

	t.Run("full capabilities support everything", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, fullCaps().Unsupported(richMessage(t)))
	})

	t.Run("empty capabilities miss every used feature", func(t *testing.T) {
		t.Parallel()

		missing := provider.Capabilities{}.Unsupported(richMessage(t))
		assert.ElementsMatch(t, []provider.Feature{
			provider.FeatureBatchMerge,
			provider.FeatureTemplates,
			provider.FeatureAttachments,
			provider.FeatureOpenTracking,
			provider.FeatureClickTracking,
			provider.FeatureMultipleTags,
			provider.FeatureMetadata,
			provider.FeatureCustomHeaders,
		}, missing)
	})

	t.Run("inline attachments reported only when plain attachments work", func(t *testing.T) {
		t.Parallel()

		caps := fullCaps()
		caps.InlineAttachments = false
		assert.Contains(t, caps.Unsupported(richMessage(t)), provider.FeatureInlineAttachments)
	})

	t.Run("single tag fine without multiple tag support", func(t *testing.T) {
		t.Parallel()

		caps := fullCaps()
		caps.MultipleTags = false
		msg := richMessage(t)
		msg.Tags = []string{"onboarding"}
		assert.Empty(t, caps.Unsupported(msg))
	})

	t.Run("plain message needs nothing", func(t *testing.T) {
		t.Parallel()

		msg := &mail.Message{
			From:       mail.Address{Email: "noreply@example.com"},
			Subject:    "Hi",
			Text:       "hello",
			Recipients: []mail.Recipient{mail.To("a@example.com")},
		}
		assert.Empty(t, provider.Capabilities{}.Unsupported(msg))
	})
}

func TestCheckFeatures(t *testing.T) {
	t.Parallel()

	t.Run("strict mode fails", func(t *testing.T) {
		t.Parallel()

		caps := fullCaps()
		caps.Metadata = false

		_, err := provider.CheckFeatures(caps, richMessage(t), provider.StrictMode)
		require.Error(t, err)
		assert.ErrorIs(t, err, provider.ErrUnsupportedFeature)
		assert.Contains(t, err.Error(), "metadata")
	})

	t.Run("best effort names exactly the dropped features", func(t *testing.T) {
		t.Parallel()

		caps := fullCaps()
		caps.Metadata = false
		caps.ClickTracking = false

		warnings, err := provider.CheckFeatures(caps, richMessage(t), provider.BestEffort)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			string(provider.FeatureMetadata),
			string(provider.FeatureClickTracking),
		}, warnings)
	})

	t.Run("batch merge never fails encoding", func(t *testing.T) {
		t.Parallel()

		caps := fullCaps()
		caps.BatchMerge = false

		warnings, err := provider.CheckFeatures(caps, richMessage(t), provider.StrictMode)
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})
}

func TestStrictness_UnmarshalText(t *testing.T) {
	t.Parallel()

	var s provider.Strictness
	require.NoError(t, s.UnmarshalText([]byte("strict")))
	assert.Equal(t, provider.StrictMode, s)

	require.NoError(t, s.UnmarshalText([]byte("")))
	assert.Equal(t, provider.BestEffort, s)

	assert.Error(t, s.UnmarshalText([]byte("lenient")))
}
