// Package youtube wraps the YouTube Data API v3 operations the dashboard
// needs. Every call borrows a bearer secret from the refresh manager, runs
// under a bounded timeout, and translates provider failures into the domain
// error taxonomy before they reach a caller.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// maxErrorBody caps how much of a provider error response is read for
// classification.
const maxErrorBody = 64 * 1024

// SecretSource hands out a valid access secret for a user. Implemented by
// the refresh manager.
type SecretSource interface {
	AccessSecret(ctx context.Context, userID string) (string, error)
}

// Recorder counts provider calls by operation and outcome kind. Implemented
// by the metrics package; optional.
type Recorder interface {
	RecordProviderCall(operation, kind string)
}

// Channel is the caller's own channel identity.
type Channel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Video is the subset of video metadata the dashboard works with.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags,omitempty"`
	CategoryID   string    `json:"category_id"`
	PublishedAt  time.Time `json:"published_at"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Privacy      string    `json:"privacy"`
	ViewCount    string    `json:"view_count"`
	LikeCount    string    `json:"like_count"`
	CommentCount string    `json:"comment_count"`
}

// VideoUpdate carries the editable metadata fields. Nil fields keep the
// current value.
type VideoUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Comment is a single comment, top level or reply.
type Comment struct {
	ID              string    `json:"id"`
	AuthorName      string    `json:"author_name"`
	AuthorChannelID string    `json:"author_channel_id,omitempty"`
	Text            string    `json:"text"`
	LikeCount       int64     `json:"like_count"`
	PublishedAt     time.Time `json:"published_at"`
}

// CommentThread is a top-level comment plus its replies.
type CommentThread struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"video_id"`
	ChannelID  string    `json:"channel_id"`
	TopLevel   Comment   `json:"top_level"`
	ReplyCount int64     `json:"reply_count"`
	Replies    []Comment `json:"replies,omitempty"`
}

// VideoPage is one page of the caller's uploads.
type VideoPage struct {
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

// ThreadPage is one page of comment threads.
type ThreadPage struct {
	Threads       []CommentThread `json:"threads"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// Client calls the YouTube Data API on behalf of authorized users.
type Client struct {
	baseURL string
	http    *http.Client
	secrets SecretSource
	timeout time.Duration

	auditLog *audit.Logger
	metrics  Recorder
	log      *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAudit attaches the audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(c *Client) {
		c.auditLog = a
	}
}

// WithMetrics attaches a provider call recorder.
func WithMetrics(r Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// NewClient creates a Client.
func NewClient(secrets SecretSource, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{},
		secrets: secrets,
		timeout: 15 * time.Second,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MyChannel resolves the caller's own channel.
func (c *Client) MyChannel(ctx context.Context, userID string) (*Channel, error) {
	secret, err := c.secrets.AccessSecret(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.channelForSecret(ctx, userID, secret)
}

// ChannelFor resolves the channel with an explicit access secret. Used
// during authorization, before a credential row exists for the user.
func (c *Client) ChannelFor(ctx context.Context, accessSecret string) (*Channel, error) {
	return c.channelForSecret(ctx, "", accessSecret)
}

func (c *Client) channelForSecret(ctx context.Context, userID, secret string) (*Channel, error) {
	q := url.Values{"part": {"snippet"}, "mine": {"true"}}
	var resp struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := c.doWithSecret(ctx, userID, "channels.list", http.MethodGet, "/channels", q, nil, &resp, secret); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &errors.ErrResourceNotFound{Operation: "channels.list", Resource: "channel"}
	}
	return &Channel{ID: resp.Items[0].ID, Title: resp.Items[0].Snippet.Title}, nil
}

// ListVideos returns a page of the caller's own videos, newest first. The
// API has no direct "my videos" listing, so it searches for the caller's
// uploads and then hydrates the hits.
func (c *Client) ListVideos(ctx context.Context, userID, pageToken string) (*VideoPage, error) {
	q := url.Values{
		"part":       {"id"},
		"forMine":    {"true"},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {"25"},
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var searchResp struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := c.do(ctx, userID, "search.list", http.MethodGet, "/search", q, nil, &searchResp); err != nil {
		return nil, err
	}

	page := &VideoPage{Videos: []Video{}, NextPageToken: searchResp.NextPageToken}
	if len(searchResp.Items) == 0 {
		return page, nil
	}

	ids := make([]string, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		ids = append(ids, item.ID.VideoID)
	}
	videos, err := c.fetchVideos(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	page.Videos = videos
	return page, nil
}

// GetVideo fetches one video.
func (c *Client) GetVideo(ctx context.Context, userID, videoID string) (*Video, error) {
	videos, err := c.fetchVideos(ctx, userID, []string{videoID})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, &errors.ErrResourceNotFound{Operation: "videos.list", Resource: videoID}
	}
	return &videos[0], nil
}

// videoResource mirrors the provider's video shape for list and update.
type videoResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		CategoryID  string   `json:"categoryId"`
		PublishedAt string   `json:"publishedAt"`
		Thumbnails  struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

func (r *videoResource) toVideo() Video {
	published, _ := time.Parse(time.RFC3339, r.Snippet.PublishedAt)
	return Video{
		ID:           r.ID,
		Title:        r.Snippet.Title,
		Description:  r.Snippet.Description,
		Tags:         r.Snippet.Tags,
		CategoryID:   r.Snippet.CategoryID,
		PublishedAt:  published,
		Thumbnail:    r.Snippet.Thumbnails.Medium.URL,
		Privacy:      r.Status.PrivacyStatus,
		ViewCount:    r.Statistics.ViewCount,
		LikeCount:    r.Statistics.LikeCount,
		CommentCount: r.Statistics.CommentCount,
	}
}

func (c *Client) fetchVideos(ctx context.Context, userID string, ids []string) ([]Video, error) {
	q := url.Values{
		"part": {"snippet,status,statistics"},
		"id":   {strings.Join(ids, ",")},
	}
	var resp struct {
		Items []videoResource `json:"items"`
	}
	if err := c.do(ctx, userID, "videos.list", http.MethodGet, "/videos", q, nil, &resp); err != nil {
		return nil, err
	}
	videos := make([]Video, 0, len(resp.Items))
	for i := range resp.Items {
		videos = append(videos, resp.Items[i].toVideo())
	}
	return videos, nil
}

// UpdateVideo edits title, description, or tags. The provider replaces the
// whole snippet on update, so the current one is read first and merged.
func (c *Client) UpdateVideo(ctx context.Context, userID, videoID string, update VideoUpdate) (*Video, error) {
	q := url.Values{"part": {"snippet"}, "id": {videoID}}
	var current struct {
		Items []videoResource `json:"items"`
	}
	if err := c.do(ctx, userID, "videos.list", http.MethodGet, "/videos", q, nil, &current); err != nil {
		return nil, err
	}
	if len(current.Items) == 0 {
		return nil, &errors.ErrResourceNotFound{Operation: "videos.update", Resource: videoID}
	}

	snippet := current.Items[0].Snippet
	if update.Title != nil {
		snippet.Title = *update.Title
	}
	if update.Description != nil {
		snippet.Description = *update.Description
	}
	if update.Tags != nil {
		snippet.Tags = *update.Tags
	}

	body := map[string]interface{}{
		"id": videoID,
		"snippet": map[string]interface{}{
			"title":       snippet.Title,
			"description": snippet.Description,
			"tags":        snippet.Tags,
			"categoryId":  snippet.CategoryID,
		},
	}
	var updated videoResource
	if err := c.do(ctx, userID, "videos.update", http.MethodPut, "/videos", url.Values{"part": {"snippet"}}, body, &updated); err != nil {
		return nil, err
	}
	video := updated.toVideo()
	return &video, nil
}

// commentResource mirrors the provider's comment shape.
type commentResource struct {
	ID      string `json:"id"`
	Snippet struct {
		ChannelID       string `json:"channelId"`
		TextDisplay     string `json:"textDisplay"`
		AuthorName      string `json:"authorDisplayName"`
		AuthorChannelID struct {
			Value string `json:"value"`
		} `json:"authorChannelId"`
		LikeCount   int64  `json:"likeCount"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
}

func (r *commentResource) toComment() Comment {
	published, _ := time.Parse(time.RFC3339, r.Snippet.PublishedAt)
	return Comment{
		ID:              r.ID,
		AuthorName:      r.Snippet.AuthorName,
		AuthorChannelID: r.Snippet.AuthorChannelID.Value,
		Text:            r.Snippet.TextDisplay,
		LikeCount:       r.Snippet.LikeCount,
		PublishedAt:     published,
	}
}

// ListComments returns a page of comment threads for a video.
func (c *Client) ListComments(ctx context.Context, userID, videoID, pageToken string) (*ThreadPage, error) {
	q := url.Values{
		"part":       {"snippet,replies"},
		"videoId":    {videoID},
		"order":      {"time"},
		"maxResults": {"50"},
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var resp struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID      string `json:"id"`
			Snippet struct {
				VideoID         string          `json:"videoId"`
				ChannelID       string          `json:"channelId"`
				TopLevelComment commentResource `json:"topLevelComment"`
				TotalReplyCount int64           `json:"totalReplyCount"`
			} `json:"snippet"`
			Replies struct {
				Comments []commentResource `json:"comments"`
			} `json:"replies"`
		} `json:"items"`
	}
	if err := c.do(ctx, userID, "commentThreads.list", http.MethodGet, "/commentThreads", q, nil, &resp); err != nil {
		return nil, err
	}

	page := &ThreadPage{Threads: []CommentThread{}, NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		thread := CommentThread{
			ID:         item.ID,
			VideoID:    item.Snippet.VideoID,
			ChannelID:  item.Snippet.ChannelID,
			TopLevel:   item.Snippet.TopLevelComment.toComment(),
			ReplyCount: item.Snippet.TotalReplyCount,
		}
		for i := range item.Replies.Comments {
			thread.Replies = append(thread.Replies, item.Replies.Comments[i].toComment())
		}
		page.Threads = append(page.Threads, thread)
	}
	return page, nil
}

// InsertComment posts a new top-level comment on a video.
func (c *Client) InsertComment(ctx context.Context, userID, videoID, text string) (*Comment, error) {
	body := map[string]interface{}{
		"snippet": map[string]interface{}{
			"videoId": videoID,
			"topLevelComment": map[string]interface{}{
				"snippet": map[string]interface{}{
					"textOriginal": text,
				},
			},
		},
	}
	var resp struct {
		Snippet struct {
			TopLevelComment commentResource `json:"topLevelComment"`
		} `json:"snippet"`
	}
	if err := c.do(ctx, userID, "commentThreads.insert", http.MethodPost, "/commentThreads", url.Values{"part": {"snippet"}}, body, &resp); err != nil {
		return nil, err
	}
	comment := resp.Snippet.TopLevelComment.toComment()
	return &comment, nil
}

// ReplyToComment posts a reply under an existing top-level comment.
func (c *Client) ReplyToComment(ctx context.Context, userID, parentID, text string) (*Comment, error) {
	body := map[string]interface{}{
		"snippet": map[string]interface{}{
			"parentId":     parentID,
			"textOriginal": text,
		},
	}
	var resp commentResource
	if err := c.do(ctx, userID, "comments.insert", http.MethodPost, "/comments", url.Values{"part": {"snippet"}}, body, &resp); err != nil {
		return nil, err
	}
	comment := resp.toComment()
	return &comment, nil
}

// DeleteComment removes a comment after confirming it lives on the caller's
// own channel. On mismatch no delete is issued.
func (c *Client) DeleteComment(ctx context.Context, userID, commentID, ownerChannelID string) error {
	q := url.Values{"part": {"snippet"}, "id": {commentID}}
	var resp struct {
		Items []commentResource `json:"items"`
	}
	if err := c.do(ctx, userID, "comments.list", http.MethodGet, "/comments", q, nil, &resp); err != nil {
		return err
	}
	if len(resp.Items) == 0 {
		return &errors.ErrResourceNotFound{Operation: "comments.delete", Resource: commentID}
	}
	if ownerChannelID == "" || resp.Items[0].Snippet.ChannelID != ownerChannelID {
		return &errors.ErrPermissionDenied{Operation: "comments.delete", Resource: commentID}
	}

	return c.do(ctx, userID, "comments.delete", http.MethodDelete, "/comments", url.Values{"id": {commentID}}, nil, nil)
}

// do performs one authenticated API call and decodes the response into out.
func (c *Client) do(ctx context.Context, userID, operation, method, path string, query url.Values, body, out interface{}) error {
	secret, err := c.secrets.AccessSecret(ctx, userID)
	if err != nil {
		return err
	}
	return c.doWithSecret(ctx, userID, operation, method, path, query, body, out, secret)
}

func (c *Client) doWithSecret(ctx context.Context, userID, operation, method, path string, query url.Values, body, out interface{}, secret string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &errors.ErrUpstream{Operation: operation, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &errors.ErrUpstream{Operation: operation, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordCall(operation, string(errors.KindUpstreamError))
		return &errors.ErrUpstream{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := classify(operation, userID, resp.StatusCode, raw)
		c.recordCall(operation, string(errors.KindOf(classified)))
		c.log.WarnWithContext(ctx, "provider call failed",
			"operation", operation,
			"status", resp.StatusCode,
			"kind", string(errors.KindOf(classified)))
		return classified
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.recordCall(operation, string(errors.KindUpstreamError))
			return &errors.ErrUpstream{Operation: operation, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	c.recordCall(operation, "ok")
	if c.auditLog != nil {
		c.auditLog.Record(audit.NewEvent(audit.ProviderCall).
			WithUserID(userID).
			WithField("operation", operation))
	}
	return nil
}

func (c *Client) recordCall(operation, kind string) {
	if c.metrics != nil {
		c.metrics.RecordProviderCall(operation, kind)
	}
}
