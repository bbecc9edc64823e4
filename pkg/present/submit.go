package present

import (
	"context"
	"sync"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Credentials authenticate writes to the graph. Either a bot password
// (Username and Password) or an OAuth owner-only Token is used.
type Credentials struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"-" yaml:"-"`
	Token    string `json:"-" yaml:"-"`
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == "" && c.Token == ""
}

// Validate checks that the credentials are usable for a write.
func (c Credentials) Validate() error {
	switch {
	case c.Token != "":
		return nil
	case c.Username == "" || c.Password == "":
		return errors.NewAuthenticationError("wikibase", "bot_password",
			"set username and password (or a token) to publish", errors.ErrCredentialsRequired)
	default:
		return nil
	}
}

// GraphWriter is the graph write endpoint the submit action talks to.
type GraphWriter interface {
	// Login starts a bot-password session.
	Login(ctx context.Context, username, password string) error
	// ResolveEntity returns the entity id of a city identifier.
	ResolveEntity(ctx context.Context, city twins.CityID) (string, error)
	// Label returns the display label of an entity.
	Label(ctx context.Context, id string) (string, error)
	// AddTwin adds a twinned-with statement on subject and returns its id.
	AddTwin(ctx context.Context, subject, partnerID string, partner twins.Record) (string, error)
}

// SubmitResult describes the statements a submission created.
type SubmitResult struct {
	Subject     string `json:"subject" yaml:"subject"`
	Partner     string `json:"partner" yaml:"partner"`
	PartnerName string `json:"partner_name" yaml:"partner_name"`
	StatementID string `json:"statement_id" yaml:"statement_id"`
	ReverseID   string `json:"reverse_statement_id,omitempty" yaml:"reverse_statement_id,omitempty"`
	References  int    `json:"references" yaml:"references"`
	TwoSided    bool   `json:"two_sided" yaml:"two_sided"`
}

// Submitter publishes an article-only partner to the graph.
type Submitter interface {
	Submit(ctx context.Context, subject twins.CityID, record twins.Record) (*SubmitResult, error)
}

// SubmitOption configures the submit action.
type SubmitOption func(*submitAction)

// WithTwoSided also writes the reverse statement on the partner.
func WithTwoSided(enabled bool) SubmitOption {
	return func(s *submitAction) {
		s.twoSided = enabled
	}
}

type submitAction struct {
	creds    Credentials
	writer   GraphWriter
	twoSided bool

	mu       sync.Mutex
	loggedIn bool
}

// NewSubmitAction creates the write action. Credentials are checked before
// the first write; a bot-password session is opened on the first submit and
// reused. A failed login is retried by the next submit.
func NewSubmitAction(creds Credentials, writer GraphWriter, opts ...SubmitOption) (Submitter, error) {
	if writer == nil {
		return nil, &errors.ValidationError{Field: "writer", Message: "cannot be nil"}
	}
	s := &submitAction{creds: creds, writer: writer}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit adds record as a twin city of subject. Only records read from the
// article may be submitted: anything the graph already lists is rejected.
func (s *submitAction) Submit(ctx context.Context, subject twins.CityID, record twins.Record) (*SubmitResult, error) {
	if record.Source != twins.SourceArticle {
		return nil, &errors.ValidationError{
			Field:   "record",
			Value:   record.PartnerName,
			Message: "only ARTICLE_ONLY partners can be submitted",
		}
	}
	if record.PartnerURL == "" {
		return nil, &errors.ValidationError{Field: "partner_url", Value: record.PartnerName, Message: "partner has no article URL to resolve"}
	}
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}
	if err := s.login(ctx); err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	subjectID, err := s.writer.ResolveEntity(ctx, subject)
	if err != nil {
		return nil, err
	}
	partnerCity, err := twins.ParseCityID(record.PartnerURL)
	if err != nil {
		return nil, err
	}
	partnerID, err := s.writer.ResolveEntity(ctx, partnerCity)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		Subject:     subjectID,
		Partner:     partnerID,
		PartnerName: record.PartnerName,
		References:  len(record.References),
		TwoSided:    s.twoSided,
	}
	result.StatementID, err = s.writer.AddTwin(ctx, subjectID, partnerID, record)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("subject", subjectID).
		Str("partner", partnerID).
		Str("statement", result.StatementID).
		Msg("Twin city published")

	if !s.twoSided {
		return result, nil
	}

	name, err := s.writer.Label(ctx, subjectID)
	if err != nil {
		return result, err
	}
	reverse := record
	reverse.PartnerName = name
	reverse.PartnerID = subjectID
	reverse.PartnerURL = ""
	reverse.Country = ""
	result.ReverseID, err = s.writer.AddTwin(ctx, partnerID, subjectID, reverse)
	if err != nil {
		return result, err
	}
	log.Info().
		Str("subject", partnerID).
		Str("partner", subjectID).
		Str("statement", result.ReverseID).
		Msg("Reverse twin city published")
	return result, nil
}

func (s *submitAction) login(ctx context.Context) error {
	if s.creds.Token != "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return nil
	}
	if err := s.writer.Login(ctx, s.creds.Username, s.creds.Password); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}
