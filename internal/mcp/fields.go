package mcp

import (
	"encoding/json"
	"math"
	"strconv"
)

// maxTimeoutSeconds is the largest seconds value whose millisecond form fits
// in a uint64.
const maxTimeoutSeconds = math.MaxUint64 / 1000

// parseStringArray reads an optional array of strings. An absent field is an
// empty slice.
func (p *parser) parseStringArray(obj map[string]any, field string) ([]string, error) {
	raw, ok := obj[field]
	if !ok {
		return []string{}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, p.errorf("'%s' must be an array", field)
	}

	out := make([]string, 0, len(items))

	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, p.errorf("%s[%d] must be a string", field, i)
		}

		out = append(out, s)
	}

	return out, nil
}

// parseEnvMap reads an optional object of string values, classifying each
// value with ResolveEnvValue.
func (p *parser) parseEnvMap(obj map[string]any, field string) (map[string]EnvValue, error) {
	raw, ok := obj[field]
	if !ok {
		return map[string]EnvValue{}, nil
	}

	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, p.errorf("'%s' must be an object", field)
	}

	out := make(map[string]EnvValue, len(entries))

	for key, value := range entries {
		s, ok := value.(string)
		if !ok {
			return nil, p.errorf("%s.%s must be a string", field, key)
		}

		out[key] = ResolveEnvValue(s, p.kind, p.mapping.PlainEnvValues)
	}

	return out, nil
}

// parseTimeout reads an optional non-negative integer timeout and returns it
// in milliseconds.
func (p *parser) parseTimeout(obj map[string]any) (*uint64, error) {
	field := p.mapping.TimeoutField

	raw, ok := obj[field]
	if !ok {
		return nil, nil
	}

	num, ok := raw.(json.Number)
	if !ok {
		return nil, p.errorf("'%s' must be a number", field)
	}

	value, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return nil, p.errorf("'%s' must be a number", field)
	}

	if p.mapping.TimeoutInSeconds() {
		if value > maxTimeoutSeconds {
			return nil, p.errorf("timeout value too large")
		}

		value *= 1000
	}

	return &value, nil
}

// parseEnabled applies the harness's enabled convention. Under an inverted
// disabled field the server is enabled unless disabled is true; otherwise it
// is enabled unless enabled is false. Non-boolean values count as absent.
func (p *parser) parseEnabled(obj map[string]any) bool {
	if field := p.mapping.DisabledField; field != "" {
		disabled, _ := obj[field].(bool)
		return !disabled
	}

	enabled, ok := obj["enabled"].(bool)
	if !ok {
		return true
	}

	return enabled
}

// parseOAuth reads the optional "oauth" object. The client secret always
// honors reference syntax, even for harnesses with plain env values.
func (p *parser) parseOAuth(obj map[string]any) (*OAuth, error) {
	raw, ok := obj["oauth"]
	if !ok {
		return nil, nil
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, p.errorf("'oauth' must be an object")
	}

	var oauth OAuth

	if v, ok := fields["client_id"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, p.errorf("oauth.client_id must be a string")
		}

		oauth.ClientID = &s
	}

	if v, ok := fields["client_secret"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, p.errorf("oauth.client_secret must be a string")
		}

		secret := ResolveEnvValue(s, p.kind, false)
		oauth.ClientSecret = &secret
	}

	if v, ok := fields["scope"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, p.errorf("oauth.scope must be a string")
		}

		oauth.Scope = &s
	}

	return &oauth, nil
}
