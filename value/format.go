package value

import (
	"strconv"
	"strings"
)

// Format renders v the way an interactive store shell prints replies.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v, "")
	return b.String()
}

func format(b *strings.Builder, v Value, indent string) {
	switch v.Kind {
	case KindNil:
		b.WriteString("(nil)")
	case KindOkay:
		b.WriteString("OK")
	case KindInt:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b.WriteString("(double) ")
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindBool:
		if v.Bool {
			b.WriteString("(true)")
		} else {
			b.WriteString("(false)")
		}
	case KindBulkString:
		b.WriteString(strconv.Quote(string(v.Bytes)))
	case KindSimpleString:
		b.Write(v.Bytes)
	case KindError:
		b.WriteString("(error) ")
		b.Write(v.Bytes)
	case KindBigNumber:
		b.WriteString("(big number) ")
		b.Write(v.Bytes)
	case KindArray, KindSet:
		if len(v.Items) == 0 {
			if v.Kind == KindSet {
				b.WriteString("(empty set)")
			} else {
				b.WriteString("(empty array)")
			}
			return
		}
		width := len(strconv.Itoa(len(v.Items)))
		for i, item := range v.Items {
			if i > 0 {
				b.WriteString("\n")
				b.WriteString(indent)
			}
			label := pad(strconv.Itoa(i+1), width) + ") "
			b.WriteString(label)
			format(b, item, indent+strings.Repeat(" ", len(label)))
		}
	case KindMap:
		if len(v.Pairs) == 0 {
			b.WriteString("(empty hash)")
			return
		}
		width := len(strconv.Itoa(len(v.Pairs)))
		for i, p := range v.Pairs {
			if i > 0 {
				b.WriteString("\n")
				b.WriteString(indent)
			}
			label := pad(strconv.Itoa(i+1), width) + "# "
			b.WriteString(label)
			format(b, p.Key, indent+strings.Repeat(" ", len(label)))
			b.WriteString(" => ")
			format(b, p.Value, indent+strings.Repeat(" ", len(label)+4))
		}
	default:
		b.WriteString(v.Kind.String())
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
