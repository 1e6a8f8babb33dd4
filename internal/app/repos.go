package app

import (
	"gorm.io/gorm"

	"github.com/openlegis/openlegis-backend/internal/data/repos"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type Repos struct {
	Bill          repos.BillRepo
	Sponsor       repos.SponsorRepo
	Amendment     repos.AmendmentRepo
	Member        repos.MemberRepo
	FederalMember repos.FederalMemberRepo
	Transcript    repos.TranscriptRepo
	RawPayloadLog repos.RawPayloadLogRepo
	SourceCursor  repos.SourceCursorRepo
	IngestRun     repos.IngestRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Bill:          repos.NewBillRepo(db, log),
		Sponsor:       repos.NewSponsorRepo(db, log),
		Amendment:     repos.NewAmendmentRepo(db, log),
		Member:        repos.NewMemberRepo(db, log),
		FederalMember: repos.NewFederalMemberRepo(db, log),
		Transcript:    repos.NewTranscriptRepo(db, log),
		RawPayloadLog: repos.NewRawPayloadLogRepo(db, log),
		SourceCursor:  repos.NewSourceCursorRepo(db, log),
		IngestRun:     repos.NewIngestRunRepo(db, log),
	}
}
