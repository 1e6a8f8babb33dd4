package mapper

import (
	"encoding/xml"
	"strings"
	"time"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/domain/legis"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// State bulk XML shapes. The archive delivers one document per file:
// BILLSTATUS carries the bill header plus actions/sponsors, LDSUMM the
// memo for one amendment version, BILLTEXT the full text for one version.
type stateBillStatus struct {
	XMLName   xml.Name       `xml:"billStatus"`
	PrintNo   string         `xml:"printNo"`
	Session   int            `xml:"session"`
	BillType  string         `xml:"billType"`
	Title     string         `xml:"title"`
	Summary   string         `xml:"summary"`
	Status    string         `xml:"status"`
	StatusDay string         `xml:"statusDate"`
	IntroDay  string         `xml:"introducedDate"`
	Sponsor   *stateSponsor  `xml:"sponsor"`
	CoSpons   []stateSponsor `xml:"coSponsors>member"`
	Actions   []stateAction  `xml:"actions>action"`
	Stricken  *bool          `xml:"stricken"`
	UniBill   *bool          `xml:"uniBill"`
}

type stateSponsor struct {
	MemberID string `xml:"memberId,attr"`
	Name     string `xml:",chardata"`
}

type stateAction struct {
	Date    string `xml:"date"`
	Chamber string `xml:"chamber"`
	Text    string `xml:"text"`
	Type    string `xml:"type"`
	SeqNo   int    `xml:"sequenceNo"`
}

type stateMemo struct {
	XMLName    xml.Name `xml:"ldSumm"`
	PrintNo    string   `xml:"printNo"`
	Session    int      `xml:"session"`
	Memo       string   `xml:"memo"`
	LawSection string   `xml:"lawSection"`
	LawCode    string   `xml:"lawCode"`
}

type stateBillText struct {
	XMLName xml.Name `xml:"billText"`
	PrintNo string   `xml:"printNo"`
	Session int      `xml:"session"`
	Text    string   `xml:"text"`
}

type stateMemberDoc struct {
	XMLName   xml.Name `xml:"memberRecord"`
	MemberID  string   `xml:"memberId"`
	FullName  string   `xml:"fullName"`
	Chamber   string   `xml:"chamber"`
	Party     string   `xml:"party"`
	Incumbent *bool    `xml:"incumbent"`
}

func mapStateBulk(rec *fetch.RawRecord) (*EntitySet, error) {
	set := &EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: rec.ExternalID,
		RawPayload: rec.Body,
	}

	switch rec.Identity.DocKind {
	case source.DocBillStatus:
		bundle, err := mapStateBillStatus(rec)
		if err != nil {
			return nil, err
		}
		set.Bill = bundle
	case source.DocMemo:
		bundle, err := mapStateMemo(rec)
		if err != nil {
			return nil, err
		}
		set.Bill = bundle
	case source.DocBillText:
		bundle, err := mapStateBillText(rec)
		if err != nil {
			return nil, err
		}
		set.Bill = bundle
	case source.DocMember:
		member, err := mapStateMember(rec)
		if err != nil {
			return nil, err
		}
		set.Member = member
	case source.DocTranscript:
		set.Transcript = mapStateTranscript(rec)
	default:
		return nil, &ingesterr.MappingError{Field: "doc_kind", Reason: "no state mapper for " + rec.Identity.DocKind}
	}
	return set, nil
}

func mapStateBillStatus(rec *fetch.RawRecord) (*BillBundle, error) {
	var doc stateBillStatus
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "billStatus", Reason: "unparsable xml: " + err.Error()}
	}
	printNo := strings.TrimSpace(doc.PrintNo)
	if printNo == "" {
		printNo = rec.Identity.PrintNo
	}
	if printNo == "" {
		return nil, &ingesterr.MappingError{Field: "printNo", Reason: "missing"}
	}
	session := doc.Session
	if session == 0 {
		session = rec.Identity.Session
	}
	if session == 0 {
		return nil, &ingesterr.MappingError{Field: "session", Reason: "missing"}
	}

	bundle := &BillBundle{
		BasePrintNo: legis.BasePrintNo(printNo),
		Session:     session,
		Source:      types.SourceState,
	}
	if v := legis.VersionOf(printNo); v != "" {
		bundle.ActiveVersion = &v
	}
	bundle.BillType = optString(doc.BillType)
	bundle.Title = optString(doc.Title)
	bundle.Summary = optString(doc.Summary)
	bundle.Status = optString(doc.Status)
	bundle.StatusDate = optDay(doc.StatusDay)
	bundle.IntroducedDate = optDay(doc.IntroDay)

	if doc.Sponsor != nil && strings.TrimSpace(doc.Sponsor.MemberID) != "" {
		bundle.Sponsors = append(bundle.Sponsors, SponsorInput{
			MemberExtID: strings.TrimSpace(doc.Sponsor.MemberID),
			FullName:    strings.TrimSpace(doc.Sponsor.Name),
		})
	}
	for _, co := range doc.CoSpons {
		if strings.TrimSpace(co.MemberID) == "" {
			continue
		}
		bundle.Sponsors = append(bundle.Sponsors, SponsorInput{
			MemberExtID: strings.TrimSpace(co.MemberID),
			FullName:    strings.TrimSpace(co.Name),
		})
	}

	for _, a := range doc.Actions {
		day := optDay(a.Date)
		if day == nil || strings.TrimSpace(a.Text) == "" {
			// An action without a date or text cannot be identified; drop
			// it rather than fail the whole bill.
			continue
		}
		bundle.Actions = append(bundle.Actions, ActionInput{
			PrintNo:    printNo,
			Date:       *day,
			Chamber:    strings.ToLower(strings.TrimSpace(a.Chamber)),
			Text:       strings.TrimSpace(a.Text),
			Type:       strings.TrimSpace(a.Type),
			SequenceNo: a.SeqNo,
		})
	}

	if v := legis.VersionOf(printNo); v != "" || doc.Stricken != nil || doc.UniBill != nil {
		bundle.Amendments = append(bundle.Amendments, AmendmentInput{
			Version:  legis.VersionOf(printNo),
			Stricken: doc.Stricken,
			UniBill:  doc.UniBill,
		})
	}
	return bundle, nil
}

func mapStateMemo(rec *fetch.RawRecord) (*BillBundle, error) {
	var doc stateMemo
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "ldSumm", Reason: "unparsable xml: " + err.Error()}
	}
	printNo := strings.TrimSpace(doc.PrintNo)
	if printNo == "" {
		printNo = rec.Identity.PrintNo
	}
	if printNo == "" {
		return nil, &ingesterr.MappingError{Field: "printNo", Reason: "missing"}
	}
	session := doc.Session
	if session == 0 {
		session = rec.Identity.Session
	}
	if session == 0 {
		return nil, &ingesterr.MappingError{Field: "session", Reason: "missing"}
	}

	return &BillBundle{
		BasePrintNo: legis.BasePrintNo(printNo),
		Session:     session,
		Source:      types.SourceState,
		Amendments: []AmendmentInput{{
			Version:    legis.VersionOf(printNo),
			Memo:       optString(doc.Memo),
			LawSection: optString(doc.LawSection),
			LawCode:    optString(doc.LawCode),
		}},
	}, nil
}

func mapStateBillText(rec *fetch.RawRecord) (*BillBundle, error) {
	var doc stateBillText
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "billText", Reason: "unparsable xml: " + err.Error()}
	}
	printNo := strings.TrimSpace(doc.PrintNo)
	if printNo == "" {
		printNo = rec.Identity.PrintNo
	}
	if printNo == "" {
		return nil, &ingesterr.MappingError{Field: "printNo", Reason: "missing"}
	}
	session := doc.Session
	if session == 0 {
		session = rec.Identity.Session
	}
	if session == 0 {
		return nil, &ingesterr.MappingError{Field: "session", Reason: "missing"}
	}

	text := StripTags(doc.Text)
	bundle := &BillBundle{
		BasePrintNo: legis.BasePrintNo(printNo),
		Session:     session,
		Source:      types.SourceState,
		FullText:    &text,
	}
	bundle.Amendments = append(bundle.Amendments, AmendmentInput{
		Version:  legis.VersionOf(printNo),
		FullText: &text,
	})
	return bundle, nil
}

func mapStateMember(rec *fetch.RawRecord) (*types.Member, error) {
	var doc stateMemberDoc
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "memberRecord", Reason: "unparsable xml: " + err.Error()}
	}
	extID := strings.TrimSpace(doc.MemberID)
	if extID == "" {
		extID = rec.Identity.PrintNo
	}
	if extID == "" {
		return nil, &ingesterr.MappingError{Field: "memberId", Reason: "missing"}
	}

	m := &types.Member{
		ExtID:    extID,
		FullName: strings.TrimSpace(doc.FullName),
		Chamber:  strings.ToLower(strings.TrimSpace(doc.Chamber)),
		Party:    strings.TrimSpace(doc.Party),
		Session:  rec.Identity.Session,
		Active:   true,
	}
	if doc.Incumbent != nil {
		m.Active = *doc.Incumbent
	}
	return m, nil
}

func mapStateTranscript(rec *fetch.RawRecord) *types.Transcript {
	tr := &types.Transcript{
		ExtID:       rec.ExternalID,
		SessionType: "SESSION",
		Text:        string(rec.Body),
	}
	if rec.Identity.PublishedAt != nil {
		ts := rec.Identity.PublishedAt.UTC()
		tr.DateTime = &ts
	}
	// The first transcript line carries the venue when present.
	if lines := strings.SplitN(strings.TrimSpace(tr.Text), "\n", 2); len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if strings.HasPrefix(first, "LOCATION:") {
			tr.Location = strings.TrimSpace(strings.TrimPrefix(first, "LOCATION:"))
		}
	}
	return tr
}

func optString(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return &v
}

func optDay(s string) *time.Time {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}
