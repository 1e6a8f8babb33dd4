// Package source parses raw file names and feed headers into structured
// source identities. Pure functions, no I/O.
package source

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
)

// Kind tags a source pipeline. One FieldMapper exists per kind.
type Kind string

const (
	KindStateBulkXML   Kind = "state_bulk_xml"
	KindFederalBulkXML Kind = "federal_bulk_xml"
	KindFederalMembers Kind = "federal_member_api"
	KindFeed           Kind = "feed"
)

// ValidKind reports whether k names a known source pipeline.
func ValidKind(k Kind) bool {
	switch k {
	case KindStateBulkXML, KindFederalBulkXML, KindFederalMembers, KindFeed:
		return true
	}
	return false
}

// Document kinds within a source.
const (
	DocBillStatus = "bill_status"
	DocBillText   = "bill_text"
	DocLawText    = "law_text"
	DocMemo       = "memo"
	DocMember     = "member"
	DocTranscript = "transcript"
)

// Encodings. Legacy state transcript exports predate the UTF-8 cutover
// and must be decoded as Windows-1252; treating them as UTF-8 silently
// corrupts the text.
const (
	EncodingUTF8   = "utf-8"
	EncodingCP1252 = "windows-1252"
)

// Identity is the parsed identity of one raw source item.
type Identity struct {
	Kind     Kind
	DocKind  string
	Name     string
	Session  int    // congress number (federal) or session year (state)
	PrintNo  string // bill print number as delivered, version suffix included
	LawNo    int    // public-law sequence for law_text docs
	SeqNo    int    // archive sequence for ordered bulk files
	Encoding string
	// PublishedAt is the source's own timestamp (archive file stamp or
	// feed entry publication time).
	PublishedAt *time.Time
}

var (
	// e.g. BILLSTATUS-119hr123.xml, PLAW-118publ42.xml
	federalStatusPattern = regexp.MustCompile(`^BILLSTATUS-(\d{2,3})([a-z]+)(\d+)\.xml$`)
	federalLawPattern    = regexp.MustCompile(`^PLAW-(\d{2,3})publ(\d+)\.xml$`)

	// e.g. 2024-03-01-12.15.30.123456_BILLSTATUS_S01234B.XML
	statePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(\d{2})\.(\d{2})\.(\d{2})\.(\d{6})_([A-Z]+)_([A-Za-z0-9]+)\.XML$`)

	// e.g. SESSION-TRANSCRIPT-031524-0007.TXT (legacy export, Windows-1252)
	stateTranscriptPattern = regexp.MustCompile(`^SESSION-TRANSCRIPT-(\d{2})(\d{2})(\d{2})-(\d{4})\.TXT$`)

	federalBillTypes = map[string]bool{
		"hr": true, "s": true, "hres": true, "sres": true,
		"hjres": true, "sjres": true, "hconres": true, "sconres": true,
	}

	stateDocKinds = map[string]string{
		"BILLSTATUS": DocBillStatus,
		"BILLTEXT":   DocBillText,
		"LDSUMM":     DocMemo,
		"MEMBER":     DocMember,
	}
)

// Identify parses a raw item name, plus optional header metadata, into an
// Identity. A grammar mismatch is a *ingesterr.ParseError, fatal for the
// single item only.
func Identify(rawName string, rawHeader map[string]string) (Identity, error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return Identity{}, &ingesterr.ParseError{Name: rawName, Reason: "empty name"}
	}

	if m := federalStatusPattern.FindStringSubmatch(name); m != nil {
		congress, _ := strconv.Atoi(m[1])
		billType := m[2]
		if !federalBillTypes[billType] {
			return Identity{}, &ingesterr.ParseError{Name: name, Reason: "unknown federal bill type " + billType}
		}
		return Identity{
			Kind:     KindFederalBulkXML,
			DocKind:  DocBillStatus,
			Name:     name,
			Session:  congress,
			PrintNo:  strings.ToUpper(billType) + m[3],
			Encoding: EncodingUTF8,
		}, nil
	}

	if m := federalLawPattern.FindStringSubmatch(name); m != nil {
		congress, _ := strconv.Atoi(m[1])
		lawNo, _ := strconv.Atoi(m[2])
		return Identity{
			Kind:     KindFederalBulkXML,
			DocKind:  DocLawText,
			Name:     name,
			Session:  congress,
			LawNo:    lawNo,
			Encoding: EncodingUTF8,
		}, nil
	}

	if m := statePattern.FindStringSubmatch(name); m != nil {
		stamp, err := time.Parse("2006-01-02 15:04:05.000000",
			m[1]+"-"+m[2]+"-"+m[3]+" "+m[4]+":"+m[5]+":"+m[6]+"."+m[7])
		if err != nil {
			return Identity{}, &ingesterr.ParseError{Name: name, Reason: "bad timestamp"}
		}
		docKind, ok := stateDocKinds[m[8]]
		if !ok {
			return Identity{}, &ingesterr.ParseError{Name: name, Reason: "unknown state doc kind " + m[8]}
		}
		year, _ := strconv.Atoi(m[1])
		seq, _ := strconv.Atoi(m[7])
		return Identity{
			Kind:        KindStateBulkXML,
			DocKind:     docKind,
			Name:        name,
			Session:     sessionYear(year),
			PrintNo:     strings.ToUpper(m[9]),
			SeqNo:       seq,
			Encoding:    EncodingUTF8,
			PublishedAt: &stamp,
		}, nil
	}

	if m := stateTranscriptPattern.FindStringSubmatch(name); m != nil {
		month, _ := strconv.Atoi(m[1])
		dayNo, _ := strconv.Atoi(m[2])
		yy, _ := strconv.Atoi(m[3])
		seq, _ := strconv.Atoi(m[4])
		stamp := time.Date(2000+yy, time.Month(month), dayNo, 0, 0, 0, 0, time.UTC)
		return Identity{
			Kind:        KindStateBulkXML,
			DocKind:     DocTranscript,
			Name:        name,
			Session:     sessionYear(stamp.Year()),
			SeqNo:       seq,
			Encoding:    EncodingCP1252,
			PublishedAt: &stamp,
		}, nil
	}

	if rawHeader != nil {
		if id, ok := identifyFromHeader(name, rawHeader); ok {
			return id, nil
		}
	}

	return Identity{}, &ingesterr.ParseError{Name: name, Reason: "name matches no known source grammar"}
}

// identifyFromHeader builds an identity for feed entries, which carry
// their metadata in entry fields rather than a file name.
func identifyFromHeader(name string, header map[string]string) (Identity, bool) {
	if header["feed"] == "" {
		return Identity{}, false
	}
	id := Identity{
		Kind:     KindFeed,
		DocKind:  DocTranscript,
		Name:     name,
		Encoding: EncodingUTF8,
	}
	if k := header["doc_kind"]; k != "" {
		id.DocKind = k
	}
	if p := header["published"]; p != "" {
		if ts, err := time.Parse(time.RFC1123Z, p); err == nil {
			id.PublishedAt = &ts
		} else if ts, err := time.Parse(time.RFC3339, p); err == nil {
			id.PublishedAt = &ts
		}
	}
	return id, true
}

// sessionYear maps a calendar year to the two-year state session it
// belongs to (sessions start on odd years).
func sessionYear(year int) int {
	if year%2 == 0 {
		return year - 1
	}
	return year
}
