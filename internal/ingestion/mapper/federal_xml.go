package mapper

import (
	"encoding/xml"
	"fmt"
	"strings"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// Federal bulk XML shapes, following the congress.gov BILLSTATUS and
// PLAW dump layouts. Only the subtrees we canonicalize are declared.
type federalBillStatus struct {
	XMLName xml.Name        `xml:"billStatus"`
	Bill    federalBillNode `xml:"bill"`
}

type federalBillNode struct {
	Congress       int                  `xml:"congress"`
	Type           string               `xml:"type"`
	Number         string               `xml:"number"`
	Title          string               `xml:"title"`
	IntroducedDate string               `xml:"introducedDate"`
	Sponsors       []federalSponsorNode `xml:"sponsors>item"`
	Cosponsors     []federalSponsorNode `xml:"cosponsors>item"`
	Actions        []federalActionNode  `xml:"actions>item"`
	Summaries      []federalSummaryNode `xml:"summaries>summary"`
	LatestAction   *federalActionNode   `xml:"latestAction"`
}

type federalSponsorNode struct {
	BioguideID string `xml:"bioguideId"`
	FullName   string `xml:"fullName"`
}

type federalActionNode struct {
	ActionDate   string `xml:"actionDate"`
	Text         string `xml:"text"`
	Type         string `xml:"type"`
	SourceSystem struct {
		Name string `xml:"name"`
	} `xml:"sourceSystem"`
}

type federalSummaryNode struct {
	Text string `xml:"text"`
}

type federalLawDoc struct {
	XMLName  xml.Name `xml:"publicLaw"`
	Congress int      `xml:"congress"`
	Number   int      `xml:"number"`
	Title    string   `xml:"title"`
	Text     string   `xml:"text"`
}

func mapFederalBulk(rec *fetch.RawRecord) (*EntitySet, error) {
	set := &EntitySet{
		IngestType: string(source.KindFederalBulkXML),
		ExternalID: rec.ExternalID,
		RawPayload: rec.Body,
	}

	switch rec.Identity.DocKind {
	case source.DocBillStatus:
		bundle, err := mapFederalBillStatus(rec)
		if err != nil {
			return nil, err
		}
		set.Bill = bundle
	case source.DocLawText:
		bundle, err := mapFederalLaw(rec)
		if err != nil {
			return nil, err
		}
		set.Bill = bundle
	default:
		return nil, &ingesterr.MappingError{Field: "doc_kind", Reason: "no federal mapper for " + rec.Identity.DocKind}
	}
	return set, nil
}

func mapFederalBillStatus(rec *fetch.RawRecord) (*BillBundle, error) {
	var doc federalBillStatus
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "billStatus", Reason: "unparsable xml: " + err.Error()}
	}
	b := doc.Bill

	congress := b.Congress
	if congress == 0 {
		congress = rec.Identity.Session
	}
	if congress == 0 {
		return nil, &ingesterr.MappingError{Field: "congress", Reason: "missing"}
	}
	printNo := strings.ToUpper(strings.TrimSpace(b.Type)) + strings.TrimSpace(b.Number)
	if strings.TrimSpace(b.Type) == "" || strings.TrimSpace(b.Number) == "" {
		printNo = rec.Identity.PrintNo
	}
	if printNo == "" {
		return nil, &ingesterr.MappingError{Field: "type/number", Reason: "missing"}
	}

	bundle := &BillBundle{
		BasePrintNo: printNo,
		Session:     congress,
		Source:      types.SourceFederal,
	}
	bundle.BillType = optString(strings.ToLower(b.Type))
	bundle.Title = optString(b.Title)
	bundle.IntroducedDate = optDay(b.IntroducedDate)
	if len(b.Summaries) > 0 {
		summary := StripTags(b.Summaries[len(b.Summaries)-1].Text)
		bundle.Summary = optString(summary)
	}
	if b.LatestAction != nil {
		bundle.Status = optString(b.LatestAction.Text)
		bundle.StatusDate = optDay(b.LatestAction.ActionDate)
	}

	for _, sp := range append(append([]federalSponsorNode{}, b.Sponsors...), b.Cosponsors...) {
		if strings.TrimSpace(sp.BioguideID) == "" {
			continue
		}
		bundle.Sponsors = append(bundle.Sponsors, SponsorInput{
			MemberExtID: strings.TrimSpace(sp.BioguideID),
			FullName:    strings.TrimSpace(sp.FullName),
		})
	}

	// The federal dump does not sequence actions; SequenceNo stays zero
	// and ordering is assigned at merge time.
	for _, a := range b.Actions {
		day := optDay(a.ActionDate)
		if day == nil || strings.TrimSpace(a.Text) == "" {
			continue
		}
		bundle.Actions = append(bundle.Actions, ActionInput{
			PrintNo: printNo,
			Date:    *day,
			Chamber: federalChamber(a.SourceSystem.Name),
			Text:    strings.TrimSpace(a.Text),
			Type:    strings.TrimSpace(a.Type),
		})
	}
	return bundle, nil
}

func mapFederalLaw(rec *fetch.RawRecord) (*BillBundle, error) {
	var doc federalLawDoc
	if err := xml.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "publicLaw", Reason: "unparsable xml: " + err.Error()}
	}
	congress := doc.Congress
	if congress == 0 {
		congress = rec.Identity.Session
	}
	lawNo := doc.Number
	if lawNo == 0 {
		lawNo = rec.Identity.LawNo
	}
	if congress == 0 || lawNo == 0 {
		return nil, &ingesterr.MappingError{Field: "congress/number", Reason: "missing"}
	}

	text := StripTags(doc.Text)
	bundle := &BillBundle{
		BasePrintNo: fmt.Sprintf("PL%d", lawNo),
		Session:     congress,
		Source:      types.SourceFederal,
		FullText:    &text,
	}
	bundle.BillType = optString("public_law")
	bundle.Title = optString(doc.Title)
	bundle.Amendments = append(bundle.Amendments, AmendmentInput{
		Version:  "",
		FullText: &text,
	})
	return bundle, nil
}

func federalChamber(sourceSystem string) string {
	s := strings.ToLower(sourceSystem)
	switch {
	case strings.Contains(s, "house"):
		return "house"
	case strings.Contains(s, "senate"):
		return "senate"
	default:
		return ""
	}
}
