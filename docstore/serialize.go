package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders v as a single line of canonical JSON-like text with no
// raw newline, rejecting forbidden field names first. Timestamps encode as
// {"$$date": <ms>}. Fields holding Undefined are dropped from the output,
// the spec's "representable in memory but omitted from serialized form"
// rule.
func Serialize(v Value) (string, error) {
	if err := checkDocumentFields(v); err != nil {
		return "", err
	}
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String(), nil
}

func writeValue(sb *strings.Builder, v Value) {
	switch t := v.(type) {
	case Undefined, nil:
		sb.WriteString("null")
	case Null:
		sb.WriteString("null")
	case float64:
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		writeJSONString(sb, t)
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Timestamp:
		sb.WriteString(`{"$$date":`)
		sb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
		sb.WriteByte('}')
	case Array:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if isUndefined(e) {
				sb.WriteString("null")
			} else {
				writeValue(sb, e)
			}
		}
		sb.WriteByte(']')
	case *Doc:
		sb.WriteByte('{')
		first := true
		for _, k := range t.keys {
			fv := t.fields[k]
			if isUndefined(fv) {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			writeJSONString(sb, k)
			sb.WriteByte(':')
			writeValue(sb, fv)
		}
		sb.WriteByte('}')
	default:
		// Never reached for values built through this package's own
		// constructors; stringify defensively rather than panic.
		writeJSONString(sb, fmt.Sprintf("%v", t))
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

// Deserialize parses one serialized line back into a Value, rehydrating
// {"$$date": ms} envelopes into Timestamp.
func Deserialize(line string) (Value, error) {
	p := &jsonParser{s: line}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("docstore: trailing data after value at offset %d", p.pos)
	}
	return v, nil
}

type jsonParser struct {
	s   string
	pos int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (Value, error) {
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("docstore: unexpected end of input")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		return s, err
	case c == 't':
		return p.parseLiteral("true", true)
	case c == 'f':
		return p.parseLiteral("false", false)
	case c == 'n':
		return p.parseLiteral("null", Null{})
	default:
		return p.parseNumber()
	}
}

func (p *jsonParser) parseLiteral(lit string, val Value) (Value, error) {
	if p.pos+len(lit) > len(p.s) || p.s[p.pos:p.pos+len(lit)] != lit {
		return nil, fmt.Errorf("docstore: invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	return val, nil
}

func (p *jsonParser) parseNumber() (Value, error) {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return nil, fmt.Errorf("docstore: invalid number at offset %d", start)
	}
	f, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("docstore: invalid number %q: %w", p.s[start:p.pos], err)
	}
	return f, nil
}

func (p *jsonParser) parseString() (string, error) {
	if p.s[p.pos] != '"' {
		return "", fmt.Errorf("docstore: expected string at offset %d", p.pos)
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '"' {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.s) {
				return "", fmt.Errorf("docstore: unterminated escape at offset %d", p.pos)
			}
			switch p.s[p.pos] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.s) {
					return "", fmt.Errorf("docstore: truncated unicode escape at offset %d", p.pos)
				}
				n, err := strconv.ParseUint(p.s[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", fmt.Errorf("docstore: invalid unicode escape: %w", err)
				}
				sb.WriteRune(rune(n))
				p.pos += 4
			default:
				return "", fmt.Errorf("docstore: invalid escape %q at offset %d", p.s[p.pos], p.pos)
			}
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("docstore: unterminated string")
}

func (p *jsonParser) parseArray() (Value, error) {
	p.pos++ // '['
	out := Array{}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("docstore: unterminated array")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return out, nil
		}
		return nil, fmt.Errorf("docstore: expected ',' or ']' at offset %d", p.pos)
	}
}

func (p *jsonParser) parseObject() (Value, error) {
	p.pos++ // '{'
	d := NewDoc()
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return finishObject(d)
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return nil, fmt.Errorf("docstore: expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		d.Set(key, v)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("docstore: unterminated object")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return finishObject(d)
		}
		return nil, fmt.Errorf("docstore: expected ',' or '}' at offset %d", p.pos)
	}
}

// finishObject rehydrates a lone {"$$date": ms} envelope into a Timestamp;
// every other object is returned as-is.
func finishObject(d *Doc) (Value, error) {
	if d.Len() == 1 && d.keys[0] == "$$date" {
		ms, ok := d.fields["$$date"].(float64)
		if !ok {
			return nil, fmt.Errorf("docstore: $$date value must be numeric")
		}
		return TimestampFromUnixMilli(int64(ms)), nil
	}
	return d, nil
}
