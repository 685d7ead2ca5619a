// Template-tag style invocation surface:
//
//	<source> <size> [options...] [as <var>]
//
// Grammar problems are always hard failures. Runtime problems (missing source,
// variable resolving to garbage) degrade to an empty render in production and are
// re-raised as syntax-class failures in debug mode - a broken asset should not
// break the whole page, but a typo in the template should never pass silently.
package thumbtag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumbnailer"
	"github.com/function61/kuvasto/pkg/thumboption"
)

// resolves template variables from the caller's scope
type Resolver interface {
	Resolve(name string) (interface{}, bool)
}

// convenience Resolver
type MapResolver map[string]interface{}

func (m MapResolver) Resolve(name string) (interface{}, bool) {
	value, found := m[name]
	return value, found
}

type Tag struct {
	Source  string   // variable name, or quoted literal path
	Size    string   // literal "WxH", or variable name
	Options []string // flag names and key=value pairs
	AsVar   string   // when non-empty, bind the record instead of emitting a URL
}

// args = tag tokens after the tag name itself
func ParseTag(args []string) (*Tag, error) {
	asVar := ""

	for i, arg := range args {
		if arg != "as" {
			continue
		}

		if i != len(args)-2 {
			return nil, kuvatypes.Syntaxf(`"as" must be second to last argument`)
		}

		asVar = args[len(args)-1]
		args = args[0 : len(args)-2]
		break
	}

	if len(args) < 2 {
		return nil, kuvatypes.Syntaxf("tag requires at least a source and a size")
	}

	return &Tag{
		Source:  args[0],
		Size:    args[1],
		Options: args[2:],
		AsVar:   asVar,
	}, nil
}

type RenderResult struct {
	// resolved URL, or "" when the thumbnail was bound to AsVar or the render
	// degraded quietly
	Output string

	// non-nil on success. the caller binds this to AsVar when requested.
	Thumb *kuvatypes.Thumbnail
}

func Render(ctx context.Context, thumber *thumbnailer.Thumbnailer, tag *Tag, vars Resolver) (*RenderResult, error) {
	degradeOrRaise := func(err error) (*RenderResult, error) {
		if kuvatypes.IsSyntaxClass(err) {
			return nil, err // caller bug - never swallowed
		}

		if thumber.Debug() {
			// debug mode trades silence for visibility
			return nil, kuvatypes.Syntaxf("%v", err)
		}

		return &RenderResult{}, nil
	}

	sourcePath, err := resolveSource(tag.Source, vars)
	if err != nil {
		return degradeOrRaise(err)
	}

	sizeToken, err := resolveSize(tag.Size, vars)
	if err != nil {
		return degradeOrRaise(err)
	}

	options, err := resolveOptionValues(tag.Options, vars)
	if err != nil {
		return degradeOrRaise(err)
	}

	thumb, err := thumber.GetThumbnail(ctx, sourcePath, append([]string{sizeToken}, options...))
	if err != nil {
		return degradeOrRaise(err)
	}

	if tag.AsVar != "" {
		return &RenderResult{Thumb: thumb}, nil
	}

	return &RenderResult{
		Output: thumber.URL(thumb),
		Thumb:  thumb,
	}, nil
}

// quoted token = literal path, bare token = variable that must resolve to a
// source reference
func resolveSource(token string, vars Resolver) (string, error) {
	if literal, isLiteral := unquote(token); isLiteral {
		return literal, nil
	}

	value, found := vars.Resolve(token)
	if !found {
		return "", kuvatypes.NewSourceError(token, fmt.Errorf("variable not found"))
	}

	path, isString := value.(string)
	if !isString {
		return "", kuvatypes.NewSourceError(token, fmt.Errorf("variable is not a source reference (%T)", value))
	}

	return path, nil
}

// size can be a literal ("240x240"), or a variable resolving to a "WxH" string or
// a (width, height) pair. a known flag name in the size position is a grammar bug
// (flag before size) and fails hard; garbage from variables is a runtime condition.
func resolveSize(token string, vars Resolver) (string, error) {
	if literal, isLiteral := unquote(token); isLiteral {
		return literal, nil
	}

	if _, err := thumboption.ParseSize(token); err == nil {
		return token, nil // literal size
	}

	if thumboption.IsRegisteredFlag(token) {
		return "", kuvatypes.Syntaxf("flag %q given before the size", token)
	}

	value, found := vars.Resolve(token)
	if !found {
		return "", kuvatypes.NewSourceError(token, fmt.Errorf("size variable not found"))
	}

	switch size := value.(type) {
	case string:
		if _, err := thumboption.ParseSize(size); err != nil {
			return "", kuvatypes.NewSourceError(token, fmt.Errorf("variable does not contain a valid size: %v", err))
		}

		return size, nil
	case thumboption.Size:
		return thumboption.FormatSize(size), nil
	case [2]int:
		return thumboption.FormatSize(thumboption.Size{Width: size[0], Height: size[1]}), nil
	case []int:
		if len(size) == 2 {
			return thumboption.FormatSize(thumboption.Size{Width: size[0], Height: size[1]}), nil
		}
	}

	return "", kuvatypes.NewSourceError(token, fmt.Errorf("variable cannot be used as a size (%T)", value))
}

// option values get variable resolution too: "quality=q" looks up q when it isn't
// already an integer
func resolveOptionValues(options []string, vars Resolver) ([]string, error) {
	resolved := []string{}

	for _, option := range options {
		key, value, isPair := strings.Cut(option, "=")
		if !isPair {
			resolved = append(resolved, option)
			continue
		}

		if _, errNotNumber := strconv.Atoi(value); errNotNumber == nil {
			resolved = append(resolved, option)
			continue
		}

		variableValue, found := vars.Resolve(value)
		if !found {
			return nil, kuvatypes.NewSourceError(value, fmt.Errorf("variable not found for option %q", key))
		}

		switch v := variableValue.(type) {
		case int:
			resolved = append(resolved, key+"="+strconv.Itoa(v))
		case string:
			if _, errNotNumber := strconv.Atoi(v); errNotNumber != nil {
				return nil, kuvatypes.NewSourceError(value, fmt.Errorf("option %q variable is not a number", key))
			}

			resolved = append(resolved, key+"="+v)
		default:
			return nil, kuvatypes.NewSourceError(value, fmt.Errorf("option %q variable has unsupported type %T", key, variableValue))
		}
	}

	return resolved, nil
}

func unquote(token string) (string, bool) {
	if len(token) >= 2 && (token[0] == '"' || token[0] == '\'') && token[len(token)-1] == token[0] {
		return token[1 : len(token)-1], true
	}

	return token, false
}
