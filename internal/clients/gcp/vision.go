package gcp

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/aymarr/mediguardian-backend/internal/clients/extractor"
	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

const (
	// Vector layout: 5 dominant colors x 4 fields, then hashed label buckets.
	visionColorSlots   = 5
	visionColorFields  = 4 // r, g, b, pixel fraction
	visionLabelBuckets = 44
	visionVectorLen    = visionColorSlots*visionColorFields + visionLabelBuckets

	visionRequestTimeout = 60 * time.Second
)

// visionExtractor derives pill feature vectors from Cloud Vision color and
// label annotations. It is a fallback for deployments that run without a
// dedicated embedding model; the vector layout is fixed so stored embeddings
// stay comparable across restarts.
type visionExtractor struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

// NewVisionExtractor dials Cloud Vision using ambient or env-provided
// credentials.
func NewVisionExtractor(log *logger.Logger) (extractor.Client, func() error, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	slog := log.With("client", "gcp.VisionExtractor")

	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, nil, fmt.Errorf("vision client: %w", err)
	}
	slog.Info("vision extractor ready", "vector_len", visionVectorLen)
	return &visionExtractor{log: slog, client: client}, client.Close, nil
}

func (v *visionExtractor) Extract(ctx context.Context, image []byte) ([]float64, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", pkgerrors.ErrInvalidArgument)
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, visionRequestTimeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: image},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_IMAGE_PROPERTIES},
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 20},
		},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vision BatchAnnotateImages: %v", pkgerrors.ErrTransient, err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, fmt.Errorf("%w: vision returned no responses", pkgerrors.ErrTransient)
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("%w: vision annotate: %s", pkgerrors.ErrInvalidArgument, r0.Error.Message)
	}

	vec := buildVisionVector(r0)
	if vecIsZero(vec) {
		return nil, fmt.Errorf("%w: no usable annotations in image", pkgerrors.ErrInvalidArgument)
	}
	return vec, nil
}

func (v *visionExtractor) ExtractForRegistration(ctx context.Context, image []byte) (*extractor.Result, error) {
	// Vision annotations are deterministic per image, so a second augmented
	// pass buys nothing here; registration quality comes from label coverage.
	vec, err := v.Extract(ctx, image)
	if err != nil {
		return nil, err
	}
	features := 0
	for _, f := range vec {
		if f != 0 {
			features++
		}
	}
	conf := math.Min(1.0, float64(features)/float64(visionColorSlots*visionColorFields))
	return &extractor.Result{Vector: vec, Confidence: conf, FeatureCount: features}, nil
}

// buildVisionVector packs dominant colors and hashed label scores into the
// fixed layout. Colors are ordered by pixel fraction so slot assignment is
// stable for near-identical photos.
func buildVisionVector(r *visionpb.AnnotateImageResponse) []float64 {
	vec := make([]float64, visionVectorLen)

	if props := r.GetImagePropertiesAnnotation(); props != nil && props.DominantColors != nil {
		colors := append([]*visionpb.ColorInfo(nil), props.DominantColors.Colors...)
		sort.SliceStable(colors, func(i, j int) bool {
			return colors[i].PixelFraction > colors[j].PixelFraction
		})
		for i := 0; i < len(colors) && i < visionColorSlots; i++ {
			c := colors[i]
			if c == nil || c.Color == nil {
				continue
			}
			base := i * visionColorFields
			vec[base+0] = float64(c.Color.Red) / 255.0
			vec[base+1] = float64(c.Color.Green) / 255.0
			vec[base+2] = float64(c.Color.Blue) / 255.0
			vec[base+3] = float64(c.PixelFraction)
		}
	}

	labelBase := visionColorSlots * visionColorFields
	for _, ann := range r.GetLabelAnnotations() {
		if ann == nil {
			continue
		}
		desc := strings.ToLower(strings.TrimSpace(ann.Description))
		if desc == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(desc))
		slot := labelBase + int(h.Sum32()%uint32(visionLabelBuckets))
		// Accumulate on collisions rather than overwrite.
		vec[slot] += float64(ann.Score)
	}

	return vec
}

func vecIsZero(vec []float64) bool {
	for _, f := range vec {
		if f != 0 {
			return false
		}
	}
	return true
}
