package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Poster sends drive summaries to a Slack channel.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostSessionSummary posts a finished drive and the updated score. Returns
// the message timestamp.
func (p *Poster) PostSessionSummary(ctx context.Context, sess session.DrivingSession, state scoring.State) (string, error) {
	text := formatSessionMessage(sess, state)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Session %s", sess.ID),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted session summary to slack", "ts", slackResp.TS, "session_id", sess.ID)
	return slackResp.TS, nil
}

func formatSessionMessage(sess session.DrivingSession, state scoring.State) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Drive finished:* %s, %.1f mi\n", session.FormatDuration(sess.Duration), sess.Distance)
	fmt.Fprintf(&sb, "*Drive score:* %d\n", sess.Score)
	fmt.Fprintf(&sb, "Avg %.0f mph | Max %.0f mph\n", sess.AverageSpeed, sess.MaxSpeed)

	if sess.HardBrakingCount == 0 && sess.SpeedingDuration < 60 {
		sb.WriteString("_Clean drive, no hard braking or speeding._\n")
	} else {
		fmt.Fprintf(&sb, "Hard braking: %d | Speeding: %s\n",
			sess.HardBrakingCount, session.FormatDuration(sess.SpeedingDuration))
	}

	fmt.Fprintf(&sb, "\n*Overall:* %d (%s), better than %d%% of drivers",
		state.AllTimeScore, scoring.Rating(state.AllTimeScore), state.PercentileRank)
	return sb.String()
}
