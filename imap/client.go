package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const inbox = "INBOX"

// Filter selects which unread messages ListUnread returns.
type Filter string

const (
	// FilterToday restricts results to messages sent since today's UTC date.
	FilterToday Filter = "today"
	// FilterDateRange is accepted but adds no predicate beyond UNSEEN.
	FilterDateRange Filter = "date_range"
	// FilterAll returns every unread message.
	FilterAll Filter = "all"
)

// ErrInvalidFilter is returned for a filter other than today, date_range or all.
var ErrInvalidFilter = errors.New("Invalid filter option")

// Session is the subset of *client.Client used by this package.
type Session interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Store(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

// DialFunc opens an implicit-TLS IMAP connection to addr.
type DialFunc func(ctx context.Context, addr string) (Session, error)

// Account identifies the server and login for one session.
type Account struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Email is one message returned by ListUnread.
type Email struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	From      string    `json:"from_email"`
	Body      string    `json:"body"`
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StoreOutcome is the result of a flag store on one identifier of a batch.
type StoreOutcome struct {
	ID  string
	Err error
}

// Client performs IMAP operations, opening a fresh session for each call.
type Client struct {
	dial DialFunc
	now  func() time.Time
}

// NewClient creates a new IMAP client that dials real servers over TLS.
func NewClient() *Client {
	return &Client{dial: dialTLS, now: time.Now}
}

// NewClientWithDialer creates a client that opens sessions through dial.
func NewClientWithDialer(dial DialFunc) *Client {
	return &Client{dial: dial, now: time.Now}
}

func dialTLS(ctx context.Context, addr string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// open connects, logs in and selects INBOX. The returned close function
// logs out and must be called on every path.
func (c *Client) open(ctx context.Context, acct Account) (Session, func(), error) {
	addr := net.JoinHostPort(acct.Host, acct.Port)
	s, err := c.dial(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to IMAP server %s: %w", addr, err)
	}
	closeFn := func() { _ = s.Logout() }

	if err := s.Login(acct.Username, acct.Password); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to login: %w", err)
	}

	if _, err := s.Select(inbox, false); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to select %s: %w", inbox, err)
	}

	return s, closeFn, nil
}

// ListUnread returns unread INBOX messages matching filter, in the order
// the server reported them. With markAsRead the full RFC822 fetch lets the
// server set \Seen; otherwise a peek fetch leaves flags untouched.
//
// The filter is checked only once the session is open.
func (c *Client) ListUnread(ctx context.Context, acct Account, filter Filter, markAsRead bool) ([]Email, error) {
	s, closeFn, err := c.open(ctx, acct)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	criteria, err := c.searchCriteria(filter)
	if err != nil {
		return nil, err
	}

	seqNums, err := s.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	if len(seqNums) == 0 {
		return []Email{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	var item imap.FetchItem
	if markAsRead {
		item = imap.FetchRFC822
	} else {
		section := &imap.BodySectionName{Peek: true}
		item = section.FetchItem()
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.Fetch(seqSet, []imap.FetchItem{item}, messages)
	}()

	bySeq := make(map[uint32]*imap.Message, len(seqNums))
	for msg := range messages {
		bySeq[msg.SeqNum] = msg
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	fetchedAt := c.now().UTC()
	emails := make([]Email, 0, len(seqNums))
	for _, num := range seqNums {
		msg, ok := bySeq[num]
		if !ok {
			continue
		}
		email := parseMessage(firstLiteral(msg))
		email.ID = strconv.FormatUint(uint64(num), 10)
		email.Timestamp = fetchedAt
		emails = append(emails, email)
	}

	return emails, nil
}

func (c *Client) searchCriteria(filter Filter) (*imap.SearchCriteria, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	switch filter {
	case FilterToday:
		now := c.now().UTC()
		criteria.SentSince = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case FilterDateRange:
		// Range bounds are not supported yet; behaves like FilterAll.
	case FilterAll:
	default:
		return nil, ErrInvalidFilter
	}

	return criteria, nil
}

// MarkRead adds \Seen to the message identified by id.
func (c *Client) MarkRead(ctx context.Context, acct Account, id string) error {
	s, closeFn, err := c.open(ctx, acct)
	if err != nil {
		return err
	}
	defer closeFn()

	return storeSeen(s, id, true)
}

// StoreSeenBatch adds (seen) or removes (!seen) \Seen on every identifier in
// ids over a single session. A failure to open the session is returned as
// an error; failures on individual identifiers are reported per outcome.
func (c *Client) StoreSeenBatch(ctx context.Context, acct Account, ids []string, seen bool) ([]StoreOutcome, error) {
	s, closeFn, err := c.open(ctx, acct)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	outcomes := make([]StoreOutcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, StoreOutcome{ID: id, Err: storeSeen(s, id, seen)})
	}
	return outcomes, nil
}

func storeSeen(s Session, id string, seen bool) error {
	seqSet, err := imap.ParseSeqSet(id)
	if err != nil {
		return fmt.Errorf("invalid email ID %q: %w", id, err)
	}

	op := imap.FlagsOp(imap.AddFlags)
	if !seen {
		op = imap.RemoveFlags
	}
	item := imap.FormatFlagsOp(op, true)

	if err := s.Store(seqSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to store flags on %s: %w", id, err)
	}
	return nil
}

// firstLiteral returns the body literal of a fetched message. RFC822 and
// BODY[] responses are both keyed as body sections by the library, so
// the lowest-sorted section wins when several are present.
func firstLiteral(msg *imap.Message) imap.Literal {
	if len(msg.Body) == 0 {
		return nil
	}
	keys := make([]string, 0, len(msg.Body))
	byKey := make(map[string]imap.Literal, len(msg.Body))
	for section, literal := range msg.Body {
		k := string(section.FetchItem())
		keys = append(keys, k)
		byKey[k] = literal
	}
	sort.Strings(keys)
	return byKey[keys[0]]
}
