package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/config"
)

// Client is one mailbox session, held for the duration of a single poll
// cycle. The poller dials a fresh session per cycle and closes it on every
// exit path; any protocol error aborts the cycle and surfaces here as a
// plain error.
type Client interface {
	// SearchAfter returns the UIDs of messages newer than the given marker,
	// ascending.
	SearchAfter(marker uint32) ([]uint32, error)
	// SearchUnseen returns the UIDs of messages without the \Seen flag,
	// ascending.
	SearchUnseen() ([]uint32, error)
	// Fetch retrieves the full raw message for one UID.
	Fetch(uid uint32) ([]byte, error)
	Close() error
}

// Dialer opens a mailbox session. The poller holds one so tests can swap the
// IMAP implementation for a fake.
type Dialer func(ctx context.Context) (Client, error)

type imapSession struct {
	cli *imapclient.Client
}

// Dial establishes a TLS connection, authenticates and selects the monitored
// folder. Every subsequent round trip on the returned session is bounded by
// the configured I/O timeout.
func Dial(ctx context.Context, cfg config.MailboxConfig, logger *zap.Logger) (Client, error) {
	tlsDialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: cfg.IOTimeout}}
	conn, err := tlsDialer.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", cfg.Addr(), err)
	}

	cli := imapclient.New(&deadlineConn{Conn: conn, timeout: cfg.IOTimeout}, &imapclient.Options{})

	if err := cli.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := cli.Select(cfg.Folder, nil).Wait(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("imap select %s: %w", cfg.Folder, err)
	}

	logger.Debug("mailbox selected", zap.String("folder", cfg.Folder))
	return &imapSession{cli: cli}, nil
}

func (s *imapSession) SearchAfter(marker uint32) ([]uint32, error) {
	var uidSet imap.UIDSet
	uidSet.AddRange(imap.UID(marker+1), 0)

	data, err := s.cli.UIDSearch(&imap.SearchCriteria{UID: []imap.UIDSet{uidSet}}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	// Servers answer a UID range of n+1:* with at least the last message even
	// when its UID is below the lower bound; drop anything not actually new.
	var uids []uint32
	for _, uid := range data.AllUIDs() {
		if uint32(uid) > marker {
			uids = append(uids, uint32(uid))
		}
	}
	return uids, nil
}

func (s *imapSession) SearchUnseen() ([]uint32, error) {
	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	data, err := s.cli.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}
	var uids []uint32
	for _, uid := range data.AllUIDs() {
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

func (s *imapSession) Fetch(uid uint32) ([]byte, error) {
	section := &imap.FetchItemBodySection{}
	options := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	msgs, err := s.cli.Fetch(imap.UIDSetNum(imap.UID(uid)), options).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch uid %d: %w", uid, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("imap fetch uid %d: no data", uid)
	}
	body := msgs[0].FindBodySection(section)
	if body == nil {
		return nil, fmt.Errorf("imap fetch uid %d: missing body section", uid)
	}
	return body, nil
}

func (s *imapSession) Close() error {
	_ = s.cli.Logout().Wait()
	return s.cli.Close()
}

// deadlineConn refreshes the connection deadline before every read and write
// so a stalled server cannot hang a poll cycle indefinitely.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(b)
}
