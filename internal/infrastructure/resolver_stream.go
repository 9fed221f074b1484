package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
)

const hlsMimeType = "application/vnd.apple.mpegurl"

var (
	isoDurationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// StreamResolver implements domain.MetadataResolver against the platform's REST API
type StreamResolver struct {
	client          *http.Client
	config          *domain.ResolverConfig
	format          string
	secondsPerChunk float64
	skipExisting    bool
	logger          *zap.Logger
}

// NewStreamResolver creates a new resolver
func NewStreamResolver(config *domain.ResolverConfig, download *domain.DownloadConfig, log *zap.Logger) *StreamResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamResolver{
		client:          &http.Client{Timeout: config.Timeout},
		config:          config,
		format:          download.Format,
		secondsPerChunk: download.SecondsPerChunk,
		skipExisting:    download.SkipExisting,
		logger:          log,
	}
}

// Resolve fetches metadata for every request in order. Any failure fails the batch.
func (r *StreamResolver) Resolve(ctx context.Context, requests []domain.VideoRequest, session domain.Session, wantCaptions bool) ([]domain.Video, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	videos := make([]domain.Video, 0, len(requests))
	taken := make(map[string]bool, len(requests))

	for _, req := range requests {
		video, err := r.resolveOne(ctx, req, session, wantCaptions)
		if err != nil {
			return nil, err
		}
		video.OutPath = r.uniquePath(req.OutDir, video.Title, video.ID, taken)
		taken[video.OutPath] = true

		r.logger.Info("Resolved video",
			zap.String("video_id", video.ID),
			zap.String("title", video.Title),
			zap.Duration("duration", video.Duration),
			zap.Int("total_chunks", video.TotalChunks),
			zap.Bool("captions", video.HasCaptions()),
			zap.String("path", video.OutPath))
		videos = append(videos, video)
	}
	return videos, nil
}

func (r *StreamResolver) resolveOne(ctx context.Context, req domain.VideoRequest, session domain.Session, wantCaptions bool) (domain.Video, error) {
	body, err := r.get(ctx, session, "videos/"+url.PathEscape(req.ID)+"?$expand=creator")
	if err != nil {
		return domain.Video{}, fmt.Errorf("video %s: %w", req.ID, err)
	}

	video, err := ParseVideoMetadata(req.ID, body, r.secondsPerChunk)
	if err != nil {
		return domain.Video{}, err
	}

	if wantCaptions {
		captions, err := r.captionsURL(ctx, session, req.ID)
		if err != nil {
			return domain.Video{}, fmt.Errorf("video %s captions: %w", req.ID, err)
		}
		if captions == "" {
			r.logger.Warn("No captions available", zap.String("video_id", req.ID))
		}
		video.CaptionsURL = captions
	}
	return video, nil
}

// ParseVideoMetadata builds a video from the API's video document. The
// output path is left empty.
func ParseVideoMetadata(id string, body []byte, secondsPerChunk float64) (domain.Video, error) {
	if !gjson.ValidBytes(body) {
		return domain.Video{}, fmt.Errorf("%w: %s: malformed metadata response", domain.ErrInvalidVideo, id)
	}
	doc := gjson.ParseBytes(body)

	playback := doc.Get(`playbackUrls.#(mimeType=="` + hlsMimeType + `").playbackUrl`).String()
	if playback == "" {
		return domain.Video{}, fmt.Errorf("%w: %s: no HLS playback url", domain.ErrInvalidVideo, id)
	}

	duration, err := ParseISODuration(doc.Get("media.duration").String())
	if err != nil {
		return domain.Video{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidVideo, id, err)
	}

	title := doc.Get("name").String()
	if strings.TrimSpace(title) == "" {
		title = id
	}

	video := domain.Video{
		ID:             id,
		Title:          title,
		PlaybackURL:    playback,
		PosterImageURL: doc.Get("posterImage.medium.url").String(),
		Duration:       duration,
		TotalChunks:    domain.DurationToChunks(duration, secondsPerChunk),
	}
	if published := doc.Get("publishedDate").String(); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			video.PublishDate = t
		}
	}
	return video, nil
}

// captionsURL picks the preferred-language track, else the first one
func (r *StreamResolver) captionsURL(ctx context.Context, session domain.Session, id string) (string, error) {
	body, err := r.get(ctx, session, "videos/"+url.PathEscape(id)+"/texttracks")
	if err != nil {
		return "", err
	}
	return PickCaptionTrack(body, r.config.CaptionLanguage), nil
}

// PickCaptionTrack returns the url of the track matching language (by prefix,
// case-insensitive), the first track when none matches, or "" when there are none
func PickCaptionTrack(body []byte, language string) string {
	tracks := gjson.GetBytes(body, "value").Array()
	if len(tracks) == 0 {
		return ""
	}
	if language != "" {
		language = strings.ToLower(language)
		for _, t := range tracks {
			if strings.HasPrefix(strings.ToLower(t.Get("language").String()), language) {
				return t.Get("url").String()
			}
		}
	}
	return tracks[0].Get("url").String()
}

// get issues an authorized API request, retrying throttling and server errors
func (r *StreamResolver) get(ctx context.Context, session domain.Session, path string) ([]byte, error) {
	endpoint := APIURL(session, path)

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Info("Retrying metadata request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.config.MaxRetries),
				zap.Error(lastErr))

			select {
			case <-time.After(r.config.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retry, err := r.do(ctx, session, endpoint)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("giving up after %d retries: %w", r.config.MaxRetries, lastErr)
}

// do performs a single request and reports whether a failure is worth retrying
func (r *StreamResolver) do(ctx context.Context, session domain.Session, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", session.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, false, fmt.Errorf("%w: server returned %s", domain.ErrInvalidVideo, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("session rejected: server returned %s", resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server returned %s", resp.Status)
	default:
		return nil, false, fmt.Errorf("unexpected response: %s", resp.Status)
	}
}

// APIURL joins path onto the session's gateway and adds the api-version parameter
func APIURL(session domain.Session, path string) string {
	base := strings.TrimSuffix(session.APIGatewayURI, "/")
	delim := "?"
	if strings.Contains(path, "?") {
		delim = "&"
	}
	return base + "/" + strings.TrimPrefix(path, "/") + delim + "api-version=" + url.QueryEscape(session.APIGatewayVersion)
}

// ParseISODuration parses the subset of ISO 8601 durations the API emits (PnDTnHnMn.nS)
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDurationRegex.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	if m[4] != "" {
		secs, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d += time.Duration(secs * float64(time.Second))
	}
	return d, nil
}

// SanitizeTitle makes a title safe to use as a file name on every platform
func SanitizeTitle(title string) string {
	s := invalidNameChars.ReplaceAllString(title, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .")
}

// uniquePath builds <dir>/<title>.<format>, adding " (n)" until the path is
// free within the batch and, unless existing files are skipped, on disk
func (r *StreamResolver) uniquePath(dir, title, id string, taken map[string]bool) string {
	name := SanitizeTitle(title)
	if name == "" {
		name = SanitizeTitle(id)
	}

	candidate := filepath.Join(dir, name+"."+r.format)
	for n := 1; r.occupied(candidate, taken); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d).%s", name, n, r.format))
	}
	return candidate
}

func (r *StreamResolver) occupied(path string, taken map[string]bool) bool {
	if taken[path] {
		return true
	}
	if r.skipExisting {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
