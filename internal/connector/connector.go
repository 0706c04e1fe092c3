package connector

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/document"
	"github.com/driftlock/mailsync/internal/message"
)

const meterName = "github.com/driftlock/mailsync/internal/connector"

// Connector synchronizes one IMAP account into Document batches. Each
// instance exclusively owns one pooled connection; instances must not be
// shared across concurrent sync runs.
type Connector struct {
	host           string
	port           int
	security       string
	username       string
	password       string
	tlsConfig      *tls.Config
	dialTimeout    time.Duration
	folders        []string
	excludeFolders []string
	batchSize      int
	decodeOpts     message.Options

	logger  *slog.Logger
	session *Session

	docsEmitted  metric.Int64Counter
	msgsSkipped  metric.Int64Counter
	batchCounter metric.Int64Counter
}

type Option func(*Connector) error

// WithConfig applies the non-secret configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *Connector) error {
		if cfg.Server.Security != "" {
			c.security = cfg.Server.Security
		}
		if cfg.Server.DialTimeout > 0 {
			c.dialTimeout = cfg.Server.DialTimeout
		}
		if cfg.Server.VerifyCert != nil && !*cfg.Server.VerifyCert {
			c.tlsConfig = &tls.Config{InsecureSkipVerify: true}
		}
		c.folders = append([]string(nil), cfg.Sync.Folders...)
		c.excludeFolders = append([]string(nil), cfg.Sync.ExcludeFolders...)
		if cfg.Sync.BatchSize > 0 {
			c.batchSize = cfg.Sync.BatchSize
		}
		c.decodeOpts = message.Options{
			MaxAttachmentSize: cfg.Attachments.MaxSizeBytes,
			AllowedTypes:      cfg.Attachments.AllowedTypes,
		}
		return nil
	}
}

// WithCredentials applies the server endpoint and login details.
func WithCredentials(env config.IMAPEnv) Option {
	return func(c *Connector) error {
		c.host = env.Host
		c.port = env.Port
		c.username = env.User
		c.password = env.Pass
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) error {
		c.logger = logger
		return nil
	}
}

func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Connector) error {
		c.tlsConfig = tlsConfig
		return nil
	}
}

// WithSession injects a pre-built session, bypassing the endpoint options.
func WithSession(session *Session) Option {
	return func(c *Connector) error {
		c.session = session
		return nil
	}
}

func New(opts ...Option) (*Connector, error) {
	c := &Connector{
		security:    config.SecurityTLS,
		dialTimeout: 30 * time.Second,
		batchSize:   config.DefaultBatchSize,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.logger == nil {
		return nil, errors.New("requires logger")
	}
	if len(c.folders) == 0 {
		c.folders = []string{defaultFolder}
	}
	if c.excludeFolders == nil {
		c.excludeFolders = append([]string(nil), config.DefaultExcludeFolders...)
	}

	if c.session == nil {
		if c.host == "" {
			return nil, errors.New("requires credentials or session")
		}
		session, err := NewSession(
			WithSessionAddr(fmt.Sprintf("%s:%d", c.host, c.port)),
			WithSessionCreds(c.username, c.password),
			WithSessionSecurity(c.security),
			WithSessionTLSConfig(c.tlsConfig),
			WithSessionDialTimeout(c.dialTimeout),
			WithSessionLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		c.session = session
	}

	meter := otel.Meter(meterName)
	var err error
	if c.docsEmitted, err = meter.Int64Counter("mailsync.documents.emitted"); err != nil {
		return nil, err
	}
	if c.msgsSkipped, err = meter.Int64Counter("mailsync.messages.skipped"); err != nil {
		return nil, err
	}
	if c.batchCounter, err = meter.Int64Counter("mailsync.batches.emitted"); err != nil {
		return nil, err
	}

	return c, nil
}

// Batch is one bounded group of documents from a single folder, emitted
// together so the caller can commit progress incrementally.
type Batch struct {
	Folder    string
	Documents []document.Document
}

// FullSync walks every resolved folder from the given checkpoint. Pass
// NewCheckpoint() for a first sync or a previously persisted checkpoint to
// resume.
func (c *Connector) FullSync(ctx context.Context, cp Checkpoint) *Run {
	return &Run{
		ctx:        ctx,
		conn:       c,
		checkpoint: cp.Clone(),
	}
}

// Poll performs an incremental sync bounded to the half-open window
// [start, end). Documents without an update timestamp are excluded; they are
// only picked up by a full sync.
func (c *Connector) Poll(ctx context.Context, cp Checkpoint, start, end time.Time) *Run {
	return &Run{
		ctx:        ctx,
		conn:       c,
		checkpoint: cp.Clone(),
		window:     &timeWindow{start: start.UTC(), end: end.UTC()},
	}
}

// Close releases the pooled connection. Safe to call when no connection was
// ever established.
func (c *Connector) Close() error {
	return c.session.Close()
}

type timeWindow struct {
	start time.Time
	end   time.Time
}

func (w *timeWindow) contains(t *time.Time) bool {
	if t == nil {
		return false
	}
	return !t.Before(w.start) && t.Before(w.end)
}

// Run is the pull-based batch stream of one sync. Usage mirrors
// database/sql rows: Next, Batch, Err. At most one batch is buffered; the
// cursor for a batch is committed into the checkpoint when the caller asks
// for the next one, so an abandoned run never records unconsumed progress.
type Run struct {
	ctx        context.Context
	conn       *Connector
	checkpoint Checkpoint
	window     *timeWindow

	resolved  bool
	folders   []string
	folderIdx int

	current         string
	currentValidity uint32
	selectedGen     uint64
	pendingUIDs     []uint32

	batch         Batch
	pendingCursor uint32
	hasPending    bool

	err  error
	done bool
}

// Next advances to the next batch. It returns false when the run completed
// or failed; check Err afterwards.
func (r *Run) Next() bool {
	r.commitPending()

	if r.done || r.err != nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}

	if !r.resolved {
		if err := r.resolveFolders(); err != nil {
			r.err = err
			return false
		}
	}

	for {
		if r.current == "" {
			if r.folderIdx >= len(r.folders) {
				r.done = true
				r.checkpoint.HasMore = false
				return false
			}
			if !r.enterFolder(r.folders[r.folderIdx]) {
				if r.err != nil {
					return false
				}
				continue
			}
		}

		batch, cursor, ok := r.fillBatch()
		if r.err != nil {
			return false
		}

		if r.current != "" && len(r.pendingUIDs) == 0 {
			r.finishFolder(cursor, ok)
		}

		if ok {
			r.batch = batch
			r.pendingCursor = cursor
			r.hasPending = true
			r.conn.batchCounter.Add(r.ctx, 1)
			r.conn.docsEmitted.Add(r.ctx, int64(len(batch.Documents)))
			return true
		}
	}
}

// Batch returns the batch produced by the last successful Next call.
func (r *Run) Batch() Batch {
	return r.batch
}

// Err returns the run-aborting error, if any. Per-message and per-folder
// failures never surface here; they are logged and skipped.
func (r *Run) Err() error {
	return r.err
}

// Checkpoint returns the current committed position. It only reflects
// batches the caller has fully consumed.
func (r *Run) Checkpoint() Checkpoint {
	return r.checkpoint.Clone()
}

func (r *Run) commitPending() {
	if !r.hasPending {
		return
	}
	r.advanceCursor(r.batch.Folder, r.pendingCursor)
	r.hasPending = false
}

func (r *Run) advanceCursor(folder string, uid uint32) {
	state := r.checkpoint.folder(folder)
	if uid > state.LastUID {
		state.LastUID = uid
	}
	state.UIDValidity = r.currentValidity
	r.checkpoint.setFolder(folder, state)
}

func (r *Run) resolveFolders() error {
	client, err := r.conn.session.Client()
	if err != nil {
		return err
	}

	serverFolders, err := listFolders(client)
	if err != nil {
		return &ConnectionError{Op: "list", Err: err}
	}

	r.folders = ResolveFolders(serverFolders, r.conn.folders, r.conn.excludeFolders)
	r.resolved = true
	r.conn.logger.Info("resolved folders", "folders", r.folders)
	return nil
}

// enterFolder selects the next folder and loads its UID backlog. Selection
// failures skip the folder; only connection loss aborts the run.
func (r *Run) enterFolder(folder string) bool {
	client, err := r.conn.session.Client()
	if err != nil {
		r.err = err
		return false
	}

	data, err := selectReadOnly(client, folder)
	if err != nil {
		r.conn.logger.Warn("skipping folder", "folder", folder, "error", err)
		r.folderIdx++
		return false
	}

	state := r.checkpoint.folder(folder)
	if state.UIDValidity != 0 && state.UIDValidity != data.UIDValidity {
		r.conn.logger.Warn("uidvalidity changed, restarting folder",
			"folder", folder, "old", state.UIDValidity, "new", data.UIDValidity)
		state = FolderState{}
	}

	r.current = folder
	r.currentValidity = data.UIDValidity
	r.selectedGen = r.conn.session.Generation()

	if data.NumMessages == 0 {
		r.pendingUIDs = nil
		return true
	}

	uids, err := searchUIDs(client)
	if err != nil {
		r.conn.logger.Warn("skipping folder", "folder", folder, "error", err)
		r.folderIdx++
		r.current = ""
		return false
	}

	r.pendingUIDs = filterUIDs(uids, state.LastUID)
	r.conn.logger.Info("entering folder",
		"folder", folder, "pending", len(r.pendingUIDs), "cursor", state.LastUID)
	return true
}

// ensureSelected returns a live client with the current folder selected,
// re-selecting after a transparent reconnect. When the folder cannot be
// selected anymore it is skipped; when its UIDVALIDITY changed mid-run the
// folder is abandoned so the main loop re-enters it with a reset cursor.
func (r *Run) ensureSelected() (*imapclient.Client, bool) {
	client, err := r.conn.session.Client()
	if err != nil {
		r.err = err
		return nil, false
	}

	if r.selectedGen == r.conn.session.Generation() {
		return client, true
	}

	data, err := selectReadOnly(client, r.current)
	if err != nil {
		r.conn.logger.Warn("skipping folder after reconnect",
			"folder", r.current, "error", err)
		r.folderIdx++
		r.current = ""
		r.pendingUIDs = nil
		return nil, false
	}
	r.selectedGen = r.conn.session.Generation()

	if data.UIDValidity != r.currentValidity {
		r.conn.logger.Warn("uidvalidity changed after reconnect, re-entering folder",
			"folder", r.current)
		r.current = ""
		r.pendingUIDs = nil
		return nil, false
	}

	return client, true
}

// fillBatch processes pending UIDs until a batch is full or the folder is
// exhausted. It returns the documents, the highest processed UID, and whether
// there is anything to emit. Messages that fail to fetch or decode, and
// documents outside an incremental window, still advance the cursor.
func (r *Run) fillBatch() (Batch, uint32, bool) {
	client, ok := r.ensureSelected()
	if !ok {
		return Batch{}, 0, false
	}

	var docs []document.Document
	var lastProcessed uint32

	for len(r.pendingUIDs) > 0 && len(docs) < r.conn.batchSize {
		uid := r.pendingUIDs[0]
		r.pendingUIDs = r.pendingUIDs[1:]
		lastProcessed = uid

		raw, err := fetchRaw(client, r.current, uid)
		if err != nil {
			r.conn.logger.Warn("fetch failed, skipping message",
				"folder", r.current, "uid", uid, "error", err)
			r.conn.msgsSkipped.Add(r.ctx, 1)
			continue
		}

		decoded, err := message.Decode(raw.Raw, r.conn.decodeOpts)
		if err != nil {
			r.conn.logger.Warn("decode failed, skipping message",
				"folder", r.current, "uid", uid, "error", err)
			r.conn.msgsSkipped.Add(r.ctx, 1)
			continue
		}

		doc := document.Assemble(decoded, r.current, uid, r.conn.host)
		if r.window != nil && !r.window.contains(doc.UpdatedAt) {
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return Batch{}, lastProcessed, false
	}
	return Batch{Folder: r.current, Documents: docs}, lastProcessed, true
}

// finishFolder records exhaustion and moves on. When nothing is owed to the
// caller the cursor commits immediately; otherwise it commits after the
// emitted batch is consumed.
func (r *Run) finishFolder(cursor uint32, emitting bool) {
	folder := r.current
	if !emitting && cursor > 0 {
		r.advanceCursor(folder, cursor)
	}

	state := r.checkpoint.folder(folder)
	state.Done = true
	state.UIDValidity = r.currentValidity
	r.checkpoint.setFolder(folder, state)

	r.folderIdx++
	r.current = ""
	r.pendingUIDs = nil
}
