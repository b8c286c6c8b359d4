package mojibake

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Codepage numbers used by spreadsheet files and parser options.
const (
	CodepageBig5      = 950
	CodepageGBK       = 936
	CodepageCP1252    = 1252
	CodepageLatin1    = 28591
	CodepageUTF16LE   = 1200
	CodepageUTF16BE   = 1201
	CodepageUTF8      = 65001
	codepageMacBig5   = 10002
	codepageLegacy164 = 164
	codepageLegacy168 = 168
	codepageLegacy176 = 176
)

// Codepage is a resolved codepage: the number actually used, the charset
// name handed to decoders that take one by name, and the codec itself.
type Codepage struct {
	Number   int
	Charset  string
	Encoding encoding.Encoding
}

// legacyAliases lists codepage identifiers that old pharmacy and POS
// exports write into BIFF CODEPAGE records while actually storing Big5.
var legacyAliases = map[int]int{
	codepageLegacy164: CodepageBig5,
	codepageLegacy168: CodepageBig5,
	codepageLegacy176: CodepageBig5,
	codepageMacBig5:   CodepageBig5,
}

// ResolveCodepage maps a declared or hinted codepage to the codec to use.
// It is called before any external decode routine; unknown codepages
// resolve to UTF-8.
func ResolveCodepage(cp int) Codepage {
	if alias, ok := legacyAliases[cp]; ok {
		cp = alias
	}

	switch cp {
	case CodepageBig5:
		return Codepage{Number: cp, Charset: "big5", Encoding: traditionalchinese.Big5}
	case CodepageGBK:
		return Codepage{Number: cp, Charset: "gbk", Encoding: simplifiedchinese.GBK}
	case CodepageCP1252:
		return Codepage{Number: cp, Charset: "windows-1252", Encoding: charmap.Windows1252}
	case CodepageLatin1:
		return Codepage{Number: cp, Charset: "iso-8859-1", Encoding: charmap.ISO8859_1}
	case CodepageUTF16LE:
		return Codepage{Number: cp, Charset: "utf-16le", Encoding: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}
	case CodepageUTF16BE:
		return Codepage{Number: cp, Charset: "utf-16be", Encoding: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}
	default:
		return Codepage{Number: CodepageUTF8, Charset: "utf-8", Encoding: unicode.UTF8}
	}
}

// IsDoubleByte reports whether cp resolves to an East-Asian double-byte codepage.
func IsDoubleByte(cp int) bool {
	switch ResolveCodepage(cp).Number {
	case CodepageBig5, CodepageGBK:
		return true
	}
	return false
}
