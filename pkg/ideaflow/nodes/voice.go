package nodes

import (
	"errors"
	"log/slog"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Voice returns the transcription node: resolve the pending audio
// reference into text and inject it as a user message.
//
// The pending reference is consumed exactly once. On success the
// update clears it alongside the injected message; on failure the
// node returns the error for the resilience layer, whose fallback
// update also clears it (see DefaultLayer). Either way the same audio
// is never processed twice.
func Voice(cfg Config) ideaflow.NodeFunc {
	return func(ctx ideaflow.Context, s state.Session) (state.Update, error) {
		if s.IsProcessing {
			return state.Update{}, nil
		}

		audioRef := s.VoiceAudioPending
		if audioRef == "" {
			return state.Update{}, nil
		}

		transcriber := ctx.Transcriber()
		if transcriber == nil {
			return state.Update{}, llm.NewError("transcribe", errNoTranscriber, false)
		}

		result, err := transcriber.Transcribe(ctx, audioRef, llm.TranscribeOptions{})
		if err != nil {
			ctx.Logger().Warn("transcription failed",
				slog.String("audio_ref", audioRef),
				slog.String("error", err.Error()))
			return state.Update{}, err
		}

		ctx.Logger().Info("voice message transcribed",
			slog.String("language", result.Language),
			slog.Int("chars", len(result.Text)))

		return state.Update{
			ClearVoice:   true,
			IsProcessing: state.Ptr(false),
			Messages:     []state.Message{state.UserMessage(result.Text, s.CurrentStage)},
		}, nil
	}
}

var errNoTranscriber = errors.New("no transcriber configured")
