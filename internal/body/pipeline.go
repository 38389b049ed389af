package body

import (
	"errors"

	"github.com/veilmail/easgate/internal/protocol/eas"
)

// ErrNoContent is returned when an item has no body material at all.
var ErrNoContent = errors.New("body: item has no content")

// Server-side preference orders. A normal Sync favors HTML so the client
// renders rich mail without a second fetch; a single-item fetch favors the
// full MIME message.
var (
	syncOrder  = []int{eas.BodyTypeHTML, eas.BodyTypePlain, eas.BodyTypeMIME}
	fetchOrder = []int{eas.BodyTypeMIME, eas.BodyTypeHTML, eas.BodyTypePlain}
)

// available reports whether the source can satisfy a body type.
func available(src *Source, typ int) bool {
	switch typ {
	case eas.BodyTypePlain, eas.BodyTypeHTML:
		return src.Plain != "" || src.HTML != "" || len(src.MIME) > 0
	case eas.BodyTypeMIME:
		return src.Plain != "" || src.HTML != "" || len(src.MIME) > 0
	default:
		// RTF (3) is never served.
		return false
	}
}

// choose picks the body type and truncation size for src. Client
// preferences win when satisfiable; duplicates of the same type keep the
// largest truncation size (nil, meaning unlimited, beats any number).
func choose(src *Source, prefs []eas.BodyPreference, singleFetch bool) (int, *int) {
	merged := mergePreferences(prefs)
	for _, p := range merged {
		if available(src, p.Type) {
			return p.Type, p.TruncationSize
		}
	}
	order := syncOrder
	if singleFetch {
		order = fetchOrder
	}
	for _, typ := range order {
		if available(src, typ) {
			return typ, nil
		}
	}
	return 0, nil
}

// mergePreferences collapses duplicate-type preferences, keeping the
// largest truncation size, and preserves first-seen order.
func mergePreferences(prefs []eas.BodyPreference) []eas.BodyPreference {
	var out []eas.BodyPreference
	index := make(map[int]int)
	for _, p := range prefs {
		i, seen := index[p.Type]
		if !seen {
			index[p.Type] = len(out)
			out = append(out, p)
			continue
		}
		switch {
		case out[i].TruncationSize == nil:
			// Already unlimited.
		case p.TruncationSize == nil:
			out[i].TruncationSize = nil
		case *p.TruncationSize > *out[i].TruncationSize:
			out[i].TruncationSize = p.TruncationSize
		}
	}
	return out
}

// Build assembles the wire payload for src under the client's preferences.
// singleFetch selects the fetch-time preference order (MIME first).
func Build(src *Source, prefs []eas.BodyPreference, singleFetch bool) (*Payload, error) {
	typ, truncation := choose(src, prefs, singleFetch)
	if typ == 0 {
		return nil, ErrNoContent
	}
	switch typ {
	case eas.BodyTypeMIME:
		return buildMIME(src, truncation)
	default:
		return buildText(src, typ, truncation)
	}
}

// buildText assembles a Type 1 or 2 payload. EstimatedSize is the UTF-8
// byte length of the full source text before newline normalization.
func buildText(src *Source, typ int, truncation *int) (*Payload, error) {
	text, err := textContent(src, typ)
	if err != nil {
		return nil, err
	}

	full := len(text)
	truncated := false
	if truncation != nil && full > *truncation {
		text = truncateUTF8(text, *truncation)
		truncated = true
	}
	text = normalizeNewlines(text)

	return &Payload{
		Type:          typ,
		Data:          []byte(text),
		EstimatedSize: full,
		Truncated:     truncated,
	}, nil
}

// textContent resolves the text for a Type 1 or 2 payload, falling back
// through the stored forms and finally to MIME extraction.
func textContent(src *Source, typ int) (string, error) {
	if typ == eas.BodyTypeHTML {
		if src.HTML != "" {
			return src.HTML, nil
		}
		if src.Plain != "" {
			return src.Plain, nil
		}
	} else {
		if src.Plain != "" {
			return src.Plain, nil
		}
		if src.HTML != "" {
			return StripTags(src.HTML), nil
		}
	}
	if len(src.MIME) == 0 {
		return "", ErrNoContent
	}
	parts, err := ExtractText(src.MIME)
	if err != nil {
		return "", err
	}
	if typ == eas.BodyTypeHTML {
		if parts.HTML != "" {
			return parts.HTML, nil
		}
		return parts.Plain, nil
	}
	if parts.Plain != "" {
		return parts.Plain, nil
	}
	return StripTags(parts.HTML), nil
}

// buildMIME assembles a Type 4 payload: the stored message verbatim, or a
// synthesized multipart/alternative when none is stored. MIME bodies are
// capped at eas.MIMETruncationCap when the client sent no truncation size.
func buildMIME(src *Source, truncation *int) (*Payload, error) {
	raw := src.MIME
	if len(raw) == 0 {
		raw = SynthesizeMIME(src)
	}
	if len(raw) == 0 {
		return nil, ErrNoContent
	}

	full := len(raw)
	limit := eas.MIMETruncationCap
	if truncation != nil {
		limit = *truncation
	}
	data := raw
	truncated := false
	if full > limit {
		data = raw[:limit]
		truncated = true
	}

	return &Payload{
		Type:          eas.BodyTypeMIME,
		Data:          data,
		EstimatedSize: full,
		Truncated:     truncated,
		ContentType:   "message/rfc822",
	}, nil
}
