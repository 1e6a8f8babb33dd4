package legis

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SourceState   = "state"
	SourceFederal = "federal"
)

// Bill is the canonical bill row. Natural key: (base_print_no, session, source).
type Bill struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BasePrintNo string    `gorm:"column:base_print_no;not null;uniqueIndex:idx_bill_natural,priority:1" json:"base_print_no"`
	Session     int       `gorm:"column:session;not null;uniqueIndex:idx_bill_natural,priority:2" json:"session"`
	Source      string    `gorm:"column:source;not null;uniqueIndex:idx_bill_natural,priority:3;index" json:"source"`

	BillType       string         `gorm:"column:bill_type" json:"bill_type,omitempty"`
	ActiveVersion  string         `gorm:"column:active_version" json:"active_version,omitempty"`
	Title          string         `gorm:"column:title;type:text" json:"title,omitempty"`
	Summary        string         `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Status         string         `gorm:"column:status;index" json:"status,omitempty"`
	StatusDate     *time.Time     `gorm:"column:status_date;type:date" json:"status_date,omitempty"`
	IntroducedDate *time.Time     `gorm:"column:introduced_date;type:date" json:"introduced_date,omitempty"`
	FullText       string         `gorm:"column:full_text;type:text" json:"full_text,omitempty"`
	SummaryVector  datatypes.JSON `gorm:"column:summary_vector;type:jsonb" json:"summary_vector,omitempty"`
	RawPayload     datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`

	Actions    []BillAction `gorm:"foreignKey:BillID" json:"actions,omitempty"`
	Amendments []Amendment  `gorm:"foreignKey:BillID" json:"amendments,omitempty"`
}

func (Bill) TableName() string { return "bill" }

// BillAction is one event in a bill's history. Rows are immutable once
// recorded; duplicates are prevented by the per-bill identity key index.
type BillAction struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BillID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_bill_action_identity,priority:1;uniqueIndex:idx_bill_action_seq,priority:1" json:"bill_id"`

	// PrintNo is the bill id exactly as delivered, version suffix included.
	PrintNo     string    `gorm:"column:print_no;not null" json:"print_no"`
	Date        time.Time `gorm:"column:date;type:date;not null" json:"date"`
	Chamber     string    `gorm:"column:chamber;not null" json:"chamber"`
	Text        string    `gorm:"column:text;type:text;not null" json:"text"`
	SequenceNo  int       `gorm:"column:sequence_no;not null;uniqueIndex:idx_bill_action_seq,priority:2" json:"sequence_no"`
	Type        string    `gorm:"column:type" json:"type,omitempty"`
	IdentityKey string    `gorm:"column:identity_key;not null;uniqueIndex:idx_bill_action_identity,priority:2" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (BillAction) TableName() string { return "bill_action" }

// Sponsor is a legislator attached to bills, keyed by an external member id.
type Sponsor struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MemberExtID string    `gorm:"column:member_ext_id;not null;uniqueIndex" json:"member_ext_id"`
	FullName    string    `gorm:"column:full_name" json:"full_name,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Sponsor) TableName() string { return "sponsor" }

// BillSponsor is the bill<->sponsor edge. At most one edge per pair.
type BillSponsor struct {
	BillID    uuid.UUID `gorm:"type:uuid;not null;primaryKey" json:"bill_id"`
	SponsorID uuid.UUID `gorm:"type:uuid;not null;primaryKey;index" json:"sponsor_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (BillSponsor) TableName() string { return "bill_sponsor" }

// Amendment is one published version of a bill, keyed by (bill, version).
type Amendment struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BillID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_amendment_bill_version,priority:1" json:"bill_id"`
	Version string    `gorm:"column:version;not null;uniqueIndex:idx_amendment_bill_version,priority:2" json:"version"`

	Memo       string         `gorm:"column:memo;type:text" json:"memo,omitempty"`
	LawSection string         `gorm:"column:law_section" json:"law_section,omitempty"`
	LawCode    string         `gorm:"column:law_code" json:"law_code,omitempty"`
	FullText   string         `gorm:"column:full_text;type:text" json:"full_text,omitempty"`
	TextHash   string         `gorm:"column:text_hash" json:"-"`
	Vector     datatypes.JSON `gorm:"column:vector;type:jsonb" json:"vector,omitempty"`
	Stricken   bool           `gorm:"column:stricken;not null;default:false" json:"stricken"`
	UniBill    bool           `gorm:"column:uni_bill;not null;default:false" json:"uni_bill"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Amendment) TableName() string { return "amendment" }

var printNoPattern = regexp.MustCompile(`^([A-Za-z]+ ?\d+)[- ]?([A-Za-z]?)$`)

// BasePrintNo strips the amendment/version suffix from a print number,
// so "S1234B" and "S1234" resolve to the same bill.
func BasePrintNo(printNo string) string {
	p := strings.ToUpper(strings.TrimSpace(printNo))
	m := printNoPattern.FindStringSubmatch(p)
	if m == nil {
		return p
	}
	return strings.ReplaceAll(m[1], " ", "")
}

// VersionOf returns the version suffix of a print number ("" for the base bill).
func VersionOf(printNo string) string {
	p := strings.ToUpper(strings.TrimSpace(printNo))
	m := printNoPattern.FindStringSubmatch(p)
	if m == nil {
		return ""
	}
	return m[2]
}

// ActionIdentity is the single definition of bill-action equality: base
// print number (version suffix ignored), date, sequence number, chamber,
// and case-insensitive text. Both in-memory dedup and the persisted
// uniqueness constraint derive from it, so the two cannot drift apart.
type ActionIdentity struct {
	BasePrintNo string
	Date        string // YYYY-MM-DD
	SequenceNo  int
	Chamber     string
	Text        string // lowercased, whitespace-trimmed
}

func (a *BillAction) Identity() ActionIdentity {
	return ActionIdentity{
		BasePrintNo: BasePrintNo(a.PrintNo),
		Date:        a.Date.Format("2006-01-02"),
		SequenceNo:  a.SequenceNo,
		Chamber:     strings.ToLower(strings.TrimSpace(a.Chamber)),
		Text:        strings.ToLower(strings.TrimSpace(a.Text)),
	}
}

// Key is the stable serialization stored in bill_action.identity_key.
func (i ActionIdentity) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", i.BasePrintNo, i.Date, i.SequenceNo, i.Chamber, i.Text)
}

func (i ActionIdentity) Equal(o ActionIdentity) bool {
	return i == o
}

func (i ActionIdentity) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(i.Key()))
	return h.Sum64()
}
