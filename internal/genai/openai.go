package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type openaiImage struct {
	client openai.Client
	model  openai.ImageModel
}

// NewImageGenerator returns an ImageGenerator backed by the OpenAI Images
// API. With reference images it uses the edit endpoint so the model can
// condition on them; without, plain generation.
func NewImageGenerator(cfg Config) ImageGenerator {
	model := cfg.Model
	if model == "" {
		model = "gpt-image-1"
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &openaiImage{client: client, model: openai.ImageModel(model)}
}

func (g *openaiImage) GenerateImage(ctx context.Context, prompt string, refs [][]byte) (Result, error) {
	var resp *openai.ImagesResponse
	var err error

	if len(refs) == 0 {
		resp, err = g.client.Images.Generate(ctx, openai.ImageGenerateParams{
			Prompt: prompt,
			Model:  g.model,
		})
	} else {
		files := make([]io.Reader, len(refs))
		for i, data := range refs {
			files[i] = openai.File(bytes.NewReader(data), fmt.Sprintf("reference-%d.png", i), "image/png")
		}
		resp, err = g.client.Images.Edit(ctx, openai.ImageEditParams{
			Image:  openai.ImageEditParamsImageUnion{OfFileArray: files},
			Prompt: prompt,
			Model:  g.model,
		})
	}
	if err != nil {
		return Result{}, err
	}

	// no image back is a declined outcome, not an error
	if len(resp.Data) == 0 {
		return Result{ProducedAt: time.Now()}, nil
	}

	img := resp.Data[0]
	if img.B64JSON == "" {
		return Result{Text: img.RevisedPrompt, ProducedAt: time.Now()}, nil
	}

	data, err := base64.StdEncoding.DecodeString(img.B64JSON)
	if err != nil {
		return Result{}, fmt.Errorf("decode image payload: %w", err)
	}

	return Result{MediaBytes: data, Text: img.RevisedPrompt, ProducedAt: time.Now()}, nil
}
