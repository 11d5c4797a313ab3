package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/flow"
	"github.com/hellas-direct/intake-assistant/internal/llm"
	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
)

// MaxImageBytes is the largest photo accepted for analysis.
const MaxImageBytes = 10 << 20

const providerBasic = "basic"

// Uploader stores photos and hands out links to them.
type Uploader interface {
	Put(ctx context.Context, caseID, filename, contentType string, content []byte) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

// ImageHandler analyses damage photos sent during a conversation.
type ImageHandler struct {
	analyzer llm.Client
	model    string
	uploads  Uploader
	store    store.Gateway
	events   flow.EventPublisher
	logger   *logger.Logger
}

// NewImageHandler creates a new image handler. analyzer, uploads and events
// may be nil.
func NewImageHandler(analyzer llm.Client, visionModel string, uploads Uploader, gw store.Gateway, events flow.EventPublisher, log *logger.Logger) *ImageHandler {
	return &ImageHandler{
		analyzer: analyzer,
		model:    visionModel,
		uploads:  uploads,
		store:    gw,
		events:   events,
		logger:   log,
	}
}

// Analyze handles POST /api/analyze-image
func (h *ImageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image exceeds maximum size")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "File must be an image")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) > MaxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds maximum size")
		return
	}

	result := &model.ImageAnalysis{
		Filename: header.Filename,
		Size:     int64(len(data)),
		Format:   "unknown",
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Dimensions = model.Dimensions{Width: cfg.Width, Height: cfg.Height}
		result.Format = format
	} else {
		h.logger.Debug("could not read image header", zap.String("filename", header.Filename), zap.Error(err))
	}

	result.Analysis, result.Provider = h.describe(ctx, header.Filename, contentType, data, result)

	caseID := strings.TrimSpace(r.FormValue("case_id"))
	imageURL := h.save(ctx, caseID, header.Filename, contentType, data)

	writeJSON(w, http.StatusOK, &model.ImageAnalysisResponse{
		Success:  true,
		ImageURL: imageURL,
		Analysis: result,
	})
}

// describe asks the vision model for an analysis and falls back to a
// metadata-only description when none is available.
func (h *ImageHandler) describe(ctx context.Context, filename, contentType string, data []byte, meta *model.ImageAnalysis) (string, string) {
	if h.analyzer == nil {
		return basicAnalysis(meta), providerBasic
	}

	start := time.Now()
	resp, err := h.analyzer.AnalyzeImage(ctx, &llm.ImageRequest{
		Model:       h.model,
		System:      llm.SystemPrompt,
		Prompt:      llm.UserPrompt(filename),
		MediaType:   contentType,
		Data:        data,
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		metrics.RecordImageAnalysis(h.analyzer.Name(), h.model, "error", time.Since(start).Seconds(), 0, 0)
		h.logger.Warn("image analysis failed, using basic analysis",
			zap.String("provider", h.analyzer.Name()),
			zap.Error(err),
		)
		return basicAnalysis(meta), providerBasic
	}

	metrics.RecordImageAnalysis(h.analyzer.Name(), resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content, h.analyzer.Name()
}

// save uploads the photo and links it to the case. Without object storage
// the photo is echoed back as a data URL and not linked.
func (h *ImageHandler) save(ctx context.Context, caseID, filename, contentType string, data []byte) string {
	inline := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if h.uploads == nil {
		return inline
	}

	key, err := h.uploads.Put(ctx, caseID, filename, contentType, data)
	if err != nil {
		h.logger.Error("failed to upload image", zap.String("case_id", caseID), zap.Error(err))
		return inline
	}
	url, err := h.uploads.URL(ctx, key)
	if err != nil {
		h.logger.Error("failed to build image url", zap.String("key", key), zap.Error(err))
		return inline
	}

	if caseID != "" && h.store != nil {
		h.attach(ctx, caseID, url)
	}
	return url
}

func (h *ImageHandler) attach(ctx context.Context, caseID, url string) {
	log := h.logger.WithIncident(caseID)

	inc, err := h.store.GetIncidentByID(ctx, caseID)
	if err != nil {
		log.Warn("failed to load incident for image", zap.Error(err))
		return
	}
	if inc == nil {
		log.Debug("image uploaded for unknown case")
		return
	}

	images := append(append([]string(nil), inc.Images...), url)
	if _, err := h.store.UpdateIncident(ctx, caseID, model.IncidentPatch{Images: images}); err != nil {
		log.Warn("failed to link image to incident", zap.Error(err))
		return
	}

	if h.events == nil {
		return
	}
	event := model.IncidentEvent{
		ID:         uuid.Must(uuid.NewV7()).String(),
		IncidentID: caseID,
		Type:       model.EventTypeImageAdded,
		CaseType:   inc.Type(),
		Metadata:   map[string]any{"url": url, "count": len(images)},
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish image event", zap.Error(err))
	}
}

// basicAnalysis describes a photo from its metadata alone.
func basicAnalysis(meta *model.ImageAnalysis) string {
	width, height := meta.Dimensions.Width, meta.Dimensions.Height

	var b strings.Builder
	b.WriteString("Βασική ανάλυση εικόνας: ")

	switch {
	case width > 1920 && height > 1080:
		b.WriteString("Εικόνα υψηλής ανάλυσης, ")
	case width < 800 && height < 600:
		b.WriteString("Εικόνα χαμηλής ανάλυσης, ")
	default:
		b.WriteString("Εικόνα μεσαίας ανάλυσης, ")
	}

	if height > 0 {
		aspect := float64(width) / float64(height)
		switch {
		case aspect > 1.5:
			b.WriteString("panoramic ή landscape format. ")
		case aspect < 0.8:
			b.WriteString("portrait format. ")
		default:
			b.WriteString("τετραγωνικό ή κανονικό format. ")
		}
	}

	fmt.Fprintf(&b, "Format: %s, Διαστάσεις: %dx%dpx", strings.ToUpper(meta.Format), width, height)
	b.WriteString(". Η αυτόματη ανάλυση περιεχομένου δεν είναι διαθέσιμη. Παρακαλώ περιγράψτε τι βλέπουμε στην εικόνα.")
	return b.String()
}
