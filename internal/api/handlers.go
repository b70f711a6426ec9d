package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/youtube"
)

// stateCookie carries the OAuth state nonce between login and callback.
const stateCookie = "oauth_state"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleLogin starts the authorization flow. The state nonce travels in a
// short-lived cookie and must be echoed by the provider callback.
func (s *Server) handleLogin(c *gin.Context) {
	authURL, state := s.auth.BeginAuthorization()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

func (s *Server) handleCallback(c *gin.Context) {
	if errCode := c.Query("error"); errCode != "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authorization denied",
			Message: "The provider reported the authorization was denied.",
			Code:    string(errors.KindAuthorizationFailed),
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing code",
			Message: "The callback carried no authorization code.",
			Code:    string(errors.KindMalformed),
		})
		return
	}

	state := c.Query("state")
	expected, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != expected {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "state mismatch",
			Message: "The callback state did not match the login request.",
			Code:    string(errors.KindMalformed),
		})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	result, err := s.auth.CompleteAuthorization(c.Request.Context(), code)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.SessionToken,
		"user":  result.User,
	})
}

// handleLogout exists for client symmetry. Session tokens are stateless and
// stay valid until expiry; the client discards its copy.
func (s *Server) handleLogout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeauthorize(c *gin.Context) {
	user := currentUser(c)
	if err := s.auth.Deauthorize(c.Request.Context(), user.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) handleListVideos(c *gin.Context) {
	user := currentUser(c)
	page, err := s.videos.ListVideos(c.Request.Context(), user.ID, c.Query("page_token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetVideo(c *gin.Context) {
	user := currentUser(c)
	video, err := s.videos.GetVideo(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *Server) handleUpdateVideo(c *gin.Context) {
	user := currentUser(c)

	var update youtube.VideoUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "invalid update body"})
		return
	}
	if update.Title == nil && update.Description == nil && update.Tags == nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "update body names no fields"})
		return
	}

	video, err := s.videos.UpdateVideo(c.Request.Context(), user.ID, c.Param("id"), update)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *Server) handleListComments(c *gin.Context) {
	user := currentUser(c)
	page, err := s.videos.ListComments(c.Request.Context(), user.ID, c.Param("id"), c.Query("page_token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type commentRequest struct {
	Text     string `json:"text" binding:"required"`
	ParentID string `json:"parent_id"`
}

func (s *Server) handleInsertComment(c *gin.Context) {
	user := currentUser(c)

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "comment text is required"})
		return
	}

	var comment *youtube.Comment
	var err error
	if req.ParentID != "" {
		comment, err = s.videos.ReplyToComment(c.Request.Context(), user.ID, req.ParentID, req.Text)
	} else {
		comment, err = s.videos.InsertComment(c.Request.Context(), user.ID, c.Param("id"), req.Text)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	user := currentUser(c)
	err := s.videos.DeleteComment(c.Request.Context(), user.ID, c.Param("id"), user.ChannelID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	if s.generator == nil {
		abortWithError(c, &errors.ErrConfiguration{Setting: "ai.api_key", Reason: "generation is not configured"})
		return
	}
	user := currentUser(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "prompt is required"})
		return
	}

	text, err := s.generator.Generate(c.Request.Context(), user.ID, req.Prompt)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAIGeneration("failure")
		}
		s.fail(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordAIGeneration("success")
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type noteRequest struct {
	VideoID string `json:"video_id"`
	Body    string `json:"body"`
}

func (s *Server) handleListNotes(c *gin.Context) {
	user := currentUser(c)
	list, err := s.notes.List(c.Request.Context(), user.ID, c.Query("video_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": list})
}

func (s *Server) handleCreateNote(c *gin.Context) {
	user := currentUser(c)

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "invalid note body"})
		return
	}

	note, err := s.notes.Create(c.Request.Context(), user.ID, req.VideoID, req.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleGetNote(c *gin.Context) {
	user := currentUser(c)
	note, err := s.notes.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	user := currentUser(c)

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &errors.ErrMalformed{Reason: "invalid note body"})
		return
	}

	note, err := s.notes.Update(c.Request.Context(), user.ID, c.Param("id"), req.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	user := currentUser(c)
	if err := s.notes.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
