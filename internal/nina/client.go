package nina

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"warnbot/internal/domain"

	"go.uber.org/zap"
)

// categoryEndpoints maps each warning category onto its mapData feed.
var categoryEndpoints = map[domain.WarningCategory]string{
	domain.CategoryWeather: "/dwd/mapData.json",
	domain.CategoryFlood:   "/lhp/mapData.json",
	domain.CategoryBiwapp:  "/biwapp/mapData.json",
	domain.CategoryKatwarn: "/katwarn/mapData.json",
	domain.CategoryMowas:   "/mowas/mapData.json",
	domain.CategoryPolice:  "/police/mapData.json",
}

// Client fetches warnings from the federal NINA API. All calls carry the
// request context plus the client-level timeout; a hung upstream must not
// stall a polling cycle.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type mapDataEntry struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	StartDate string `json:"startDate"`
	Severity  string `json:"severity"`
	Type      string `json:"type"`
	I18nTitle struct {
		De string `json:"de"`
	} `json:"i18nTitle"`
}

// FetchWarnings polls the feed for one category and returns the currently
// active warnings. An empty feed yields an empty slice.
func (c *Client) FetchWarnings(ctx context.Context, category domain.WarningCategory) ([]domain.Warning, error) {
	endpoint, ok := categoryEndpoints[category]
	if !ok {
		return nil, fmt.Errorf("nina: no endpoint for category %q", category)
	}

	var entries []mapDataEntry
	if err := c.getJSON(ctx, c.baseURL+endpoint, &entries); err != nil {
		return nil, fmt.Errorf("nina: fetch %s: %w", category, err)
	}

	warnings := make([]domain.Warning, 0, len(entries))
	for _, e := range entries {
		severity := domain.ParseSeverity(e.Severity)
		if severity == domain.SeverityUnknown && e.Severity != "" {
			c.logger.Warn("unrecognized warning severity",
				zap.String("severity", e.Severity),
				zap.String("warning_id", e.ID),
			)
		}
		warnings = append(warnings, domain.Warning{
			ID:        e.ID,
			Version:   e.Version,
			StartDate: translateTime(e.StartDate),
			Severity:  severity,
			Category:  category,
			Title:     e.I18nTitle.De,
		})
	}
	return warnings, nil
}

type detailResponse struct {
	Identifier string `json:"identifier"`
	Sender     string `json:"sender"`
	Sent       string `json:"sent"`
	Status     string `json:"status"`
	Info       []struct {
		Language    string `json:"language"`
		Event       string `json:"event"`
		Severity    string `json:"severity"`
		Expires     string `json:"expires"`
		Headline    string `json:"headline"`
		Description string `json:"description"`
		Area        []struct {
			AreaDesc string `json:"areaDesc"`
			Geocode  []struct {
				Value string `json:"value"`
			} `json:"geocode"`
		} `json:"area"`
	} `json:"info"`
}

// FetchDetails fetches the rich per-warning record used for rendering. The
// first info block matching the language (default "de") wins; HTML in the
// description is flattened to plain text.
func (c *Client) FetchDetails(ctx context.Context, warningID, language string) (*domain.DetailedWarning, error) {
	if language == "" {
		language = "de"
	}

	var resp detailResponse
	if err := c.getJSON(ctx, c.baseURL+"/warnings/"+warningID+".json", &resp); err != nil {
		return nil, fmt.Errorf("nina: fetch details %s: %w", warningID, err)
	}

	detail := &domain.DetailedWarning{
		ID:       resp.Identifier,
		Sender:   resp.Sender,
		DateSent: translateTime(resp.Sent),
		Status:   resp.Status,
	}

	for _, info := range resp.Info {
		if info.Language != "" && !containsFold(info.Language, language) {
			continue
		}
		detail.Event = info.Event
		detail.Severity = domain.ParseSeverity(info.Severity)
		detail.DateExpires = translateTime(info.Expires)
		detail.Headline = info.Headline
		detail.Description = StripHTML(info.Description)
		for _, a := range info.Area {
			area := domain.DetailedWarningArea{Description: a.AreaDesc}
			for _, g := range a.Geocode {
				area.Geocodes = append(area.Geocodes, g.Value)
			}
			detail.Areas = append(detail.Areas, area)
		}
		break
	}

	if detail.Headline != "" {
		detail.WarningURL = warningURL(detail.ID, detail.Headline)
	}
	return detail, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
