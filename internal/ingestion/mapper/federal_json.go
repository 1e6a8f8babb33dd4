package mapper

import (
	"encoding/json"
	"strings"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// Member detail payload from the congress.gov member endpoint.
type federalMemberDoc struct {
	Member struct {
		BioguideID    string `json:"bioguideId"`
		DirectOrder   string `json:"directOrderName"`
		InvertedOrder string `json:"invertedOrderName"`
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
		State         string `json:"state"`
		PartyName     string `json:"partyName"`
		CurrentMember bool   `json:"currentMember"`
		Terms         []struct {
			Chamber string `json:"chamber"`
		} `json:"terms"`
	} `json:"member"`
}

func mapFederalMember(rec *fetch.RawRecord) (*EntitySet, error) {
	var doc federalMemberDoc
	if err := json.Unmarshal(rec.Body, &doc); err != nil {
		return nil, &ingesterr.MappingError{Field: "member", Reason: "unparsable json: " + err.Error()}
	}
	m := doc.Member

	bioguide := strings.TrimSpace(m.BioguideID)
	if bioguide == "" {
		bioguide = strings.TrimSpace(rec.Identity.Name)
	}
	if bioguide == "" {
		return nil, &ingesterr.MappingError{Field: "bioguideId", Reason: "missing"}
	}

	fullName := strings.TrimSpace(m.DirectOrder)
	if fullName == "" {
		fullName = strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
	}
	if fullName == "" {
		fullName = strings.TrimSpace(m.InvertedOrder)
	}

	chamber := ""
	if len(m.Terms) > 0 {
		chamber = strings.ToLower(strings.TrimSpace(m.Terms[len(m.Terms)-1].Chamber))
	}

	return &EntitySet{
		IngestType: string(source.KindFederalMembers),
		ExternalID: rec.ExternalID,
		RawPayload: rec.Body,
		FederalMember: &types.FederalMember{
			BioguideID:    bioguide,
			FullName:      fullName,
			State:         strings.TrimSpace(m.State),
			Party:         strings.TrimSpace(m.PartyName),
			Chamber:       chamber,
			CurrentMember: m.CurrentMember,
		},
	}, nil
}
