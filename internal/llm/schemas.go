package llm

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dbraendle/postcraft/internal/models"
)

// MaxQuoteLength bounds citation quotes; longer quotes are rejected as
// schema violations rather than truncated.
const MaxQuoteLength = 150

// MaxTweetLength is the hard platform limit for tweet text.
const MaxTweetLength = 280

// profileSchemaJSON describes the context profile the model must return.
const profileSchemaJSON = `{
	"type": "object",
	"required": ["audience", "tone", "themes", "keyClaims"],
	"additionalProperties": false,
	"properties": {
		"audience": {"type": "string", "minLength": 1},
		"tone": {"type": "string", "minLength": 1},
		"themes": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		},
		"keyClaims": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["claim", "chunkIds", "quote"],
				"additionalProperties": false,
				"properties": {
					"claim": {"type": "string", "minLength": 1},
					"chunkIds": {
						"type": "array",
						"minItems": 1,
						"items": {"type": "string", "minLength": 1}
					},
					"quote": {"type": "string", "minLength": 1, "maxLength": 150}
				}
			}
		}
	}
}`

// generationSchemaJSON describes one full generation batch: five Instagram
// posts (a mix of carousels and singles), five tweets, five LinkedIn posts,
// every post carrying citations. The exact carousel/single split is checked
// in ValidateGenerationOutput since JSON Schema cannot count variants.
const generationSchemaJSON = `{
	"$defs": {
		"citation": {
			"type": "object",
			"required": ["chunkId", "quote"],
			"additionalProperties": false,
			"properties": {
				"chunkId": {"type": "string", "minLength": 1},
				"quote": {"type": "string", "minLength": 1, "maxLength": 150}
			}
		},
		"citations": {
			"type": "array",
			"minItems": 1,
			"items": {"$ref": "#/$defs/citation"}
		},
		"hashtags": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"carousel": {
			"type": "object",
			"required": ["type", "slides", "caption", "hashtags", "citations"],
			"additionalProperties": false,
			"properties": {
				"type": {"const": "carousel"},
				"slides": {
					"type": "array",
					"minItems": 2,
					"maxItems": 10,
					"items": {
						"type": "object",
						"required": ["heading", "body"],
						"additionalProperties": false,
						"properties": {
							"heading": {"type": "string", "minLength": 1},
							"body": {"type": "string", "minLength": 1}
						}
					}
				},
				"caption": {"type": "string", "minLength": 1},
				"hashtags": {"$ref": "#/$defs/hashtags"},
				"citations": {"$ref": "#/$defs/citations"}
			}
		},
		"single": {
			"type": "object",
			"required": ["type", "caption", "hashtags", "citations"],
			"additionalProperties": false,
			"properties": {
				"type": {"const": "single"},
				"caption": {"type": "string", "minLength": 1},
				"hashtags": {"$ref": "#/$defs/hashtags"},
				"citations": {"$ref": "#/$defs/citations"}
			}
		}
	},
	"type": "object",
	"required": ["instagram", "tweets", "linkedin"],
	"additionalProperties": false,
	"properties": {
		"instagram": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"items": {"oneOf": [{"$ref": "#/$defs/carousel"}, {"$ref": "#/$defs/single"}]}
		},
		"tweets": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"items": {
				"type": "object",
				"required": ["text", "hashtags", "citations"],
				"additionalProperties": false,
				"properties": {
					"text": {"type": "string", "minLength": 1, "maxLength": 280},
					"hashtags": {"$ref": "#/$defs/hashtags"},
					"citations": {"$ref": "#/$defs/citations"}
				}
			}
		},
		"linkedin": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"items": {
				"type": "object",
				"required": ["text", "hashtags", "citations"],
				"additionalProperties": false,
				"properties": {
					"text": {"type": "string", "minLength": 1},
					"hashtags": {"$ref": "#/$defs/hashtags"},
					"citations": {"$ref": "#/$defs/citations"}
				}
			}
		}
	}
}`

// Precompiled schemas; MustCompileString panics at init if the literals are
// malformed, which is the right failure mode for embedded constants.
var (
	ProfileSchema    = jsonschema.MustCompileString("profile.json", profileSchemaJSON)
	GenerationSchema = jsonschema.MustCompileString("generation.json", generationSchemaJSON)
)

// GenerationOutput is the decoded generation batch. Instagram posts stay raw
// until DecodeInstagramPost resolves their variant.
type GenerationOutput struct {
	Instagram []json.RawMessage `json:"instagram"`
	Tweets    []TextPost        `json:"tweets"`
	LinkedIn  []TextPost        `json:"linkedin"`
}

// TextPost is a plain-text post (tweet or LinkedIn).
type TextPost struct {
	Text      string            `json:"text"`
	Hashtags  []string          `json:"hashtags"`
	Citations []models.Citation `json:"citations"`
}

// CarouselSlide is one slide of an Instagram carousel.
type CarouselSlide struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// InstagramCarouselPost is the carousel variant of an Instagram post.
type InstagramCarouselPost struct {
	Type      string            `json:"type"`
	Slides    []CarouselSlide   `json:"slides"`
	Caption   string            `json:"caption"`
	Hashtags  []string          `json:"hashtags"`
	Citations []models.Citation `json:"citations"`
}

// InstagramSinglePost is the single-image variant of an Instagram post.
type InstagramSinglePost struct {
	Type      string            `json:"type"`
	Caption   string            `json:"caption"`
	Hashtags  []string          `json:"hashtags"`
	Citations []models.Citation `json:"citations"`
}

// InstagramPost is the resolved variant of one Instagram entry. Exactly one
// of Carousel or Single is set, matching Type.
type InstagramPost struct {
	Type     models.InstagramType
	Carousel *InstagramCarouselPost
	Single   *InstagramSinglePost
}

// DecodeInstagramPost resolves one raw Instagram entry by its "type" tag.
// Unknown or missing tags are an error, never silently coerced: malformed
// model output must fail the batch loudly.
func DecodeInstagramPost(raw json.RawMessage) (InstagramPost, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return InstagramPost{}, fmt.Errorf("decode instagram post tag: %w", err)
	}

	switch head.Type {
	case string(models.InstagramCarousel):
		var post InstagramCarouselPost
		if err := json.Unmarshal(raw, &post); err != nil {
			return InstagramPost{}, fmt.Errorf("decode carousel post: %w", err)
		}
		if len(post.Slides) < 2 || len(post.Slides) > 10 {
			return InstagramPost{}, fmt.Errorf("carousel has %d slides, want 2-10", len(post.Slides))
		}
		return InstagramPost{Type: models.InstagramCarousel, Carousel: &post}, nil

	case string(models.InstagramSingle):
		var post InstagramSinglePost
		if err := json.Unmarshal(raw, &post); err != nil {
			return InstagramPost{}, fmt.Errorf("decode single post: %w", err)
		}
		return InstagramPost{Type: models.InstagramSingle, Single: &post}, nil

	case "":
		return InstagramPost{}, fmt.Errorf("instagram post missing type tag")

	default:
		return InstagramPost{}, fmt.Errorf("unknown instagram post type %q", head.Type)
	}
}

// ValidateGenerationOutput enforces the batch composition the schema cannot
// express: exactly 2 carousels and 3 singles among the 5 Instagram posts.
// Returns the decoded Instagram posts in batch order.
func ValidateGenerationOutput(out *GenerationOutput) ([]InstagramPost, error) {
	posts := make([]InstagramPost, 0, len(out.Instagram))
	carousels, singles := 0, 0

	for i, raw := range out.Instagram {
		post, err := DecodeInstagramPost(raw)
		if err != nil {
			return nil, fmt.Errorf("instagram post %d: %w", i, err)
		}
		switch post.Type {
		case models.InstagramCarousel:
			carousels++
		case models.InstagramSingle:
			singles++
		}
		posts = append(posts, post)
	}

	if carousels != 2 || singles != 3 {
		return nil, fmt.Errorf("instagram batch has %d carousels and %d singles, want 2 and 3", carousels, singles)
	}
	return posts, nil
}
