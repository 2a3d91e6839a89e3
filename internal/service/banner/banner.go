// Package banner attaches an uploaded banner image to an event.
package banner

import (
	"context"
	"errors"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
)

const (
	attachmentType = "banner"
	mediaType      = "image"
)

type placeholder struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
}

type patch struct {
	URL string `json:"url"`
}

// Step runs the placeholder, upload and patch sequence.
type Step struct {
	gw gateway.Gateway
}

// New returns a banner Step.
func New(gw gateway.Gateway) *Step {
	return &Step{gw: gw}
}

// Attach creates the attachment placeholder, uploads in, and patches the
// placeholder with the resulting URL. Each call runs only if the previous one
// succeeded. Attach returns the attachment id and the storage URL.
func (s *Step) Attach(ctx context.Context, eventID string, in *model.BannerInput) (attachmentID, url string, err error) {
	if in == nil || len(in.Content) == 0 {
		return "", "", apperr.New(apperr.KindAttachmentCreateFailed, gateway.ResourceAttachment, "",
			errors.New("banner has no content"))
	}

	env, err := s.gw.Create(ctx, gateway.ResourceAttachment, placeholder{
		EventID:   eventID,
		Type:      attachmentType,
		MediaType: mediaType,
	})
	if err != nil {
		return "", "", apperr.New(apperr.KindAttachmentCreateFailed, gateway.ResourceAttachment, in.Filename, err)
	}
	attachmentID, err = gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return "", "", apperr.New(apperr.KindAttachmentCreateFailed, gateway.ResourceAttachment, in.Filename, err)
	}

	env, err = s.gw.Upload(ctx, attachmentID, gateway.File{
		Name:        in.Filename,
		ContentType: in.ContentType,
		Content:     in.Content,
	})
	if err != nil {
		return attachmentID, "", apperr.New(apperr.KindUploadFailed, gateway.ResourceUpload, in.Filename, err)
	}
	var uploaded struct {
		URL string `json:"url"`
	}
	if err := gateway.Classify(env, gateway.CodeCreateSuccess).Decode(&uploaded); err != nil {
		return attachmentID, "", apperr.New(apperr.KindUploadFailed, gateway.ResourceUpload, in.Filename, err)
	}
	if uploaded.URL == "" {
		return attachmentID, "", apperr.New(apperr.KindUploadFailed, gateway.ResourceUpload, in.Filename,
			errors.New("upload returned no url"))
	}

	env, err = s.gw.Update(ctx, gateway.ResourceAttachment, attachmentID, patch{URL: uploaded.URL})
	if err != nil {
		return attachmentID, "", apperr.New(apperr.KindBannerUpdateFailed, gateway.ResourceAttachment, in.Filename, err)
	}
	if err := gateway.Classify(env, gateway.CodeUpdateSuccess).Err(); err != nil {
		return attachmentID, "", apperr.New(apperr.KindBannerUpdateFailed, gateway.ResourceAttachment, in.Filename, err)
	}
	return attachmentID, uploaded.URL, nil
}
