package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/logging"
	"github.com/dmitrijs2005/geocrypt/internal/server/metrics"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/notify"
	"github.com/dmitrijs2005/geocrypt/internal/server/objectstore"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/geocrypt/internal/server/secretstore"
)

// CodeLength is the number of decimal digits in a one-time code.
const CodeLength = 6

// ContactResolver returns where a user's one-time codes are delivered.
type ContactResolver interface {
	ContactAddress(ctx context.Context, userID string) (string, error)
}

// GateOptions holds the access gate's timing parameters.
type GateOptions struct {
	CodeTTL        time.Duration
	DownloadExpiry time.Duration
}

// AccessGate guards downloads behind a one-time emailed code and the
// geohash recorded at upload.
type AccessGate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       secretstore.Store
	sender      notify.Sender
	contacts    ContactResolver
	objects     objectstore.Gateway
	logger      logging.Logger
	opts        GateOptions

	newCode func() (string, error)
}

func NewAccessGate(
	db *sql.DB,
	m repomanager.RepositoryManager,
	codes secretstore.Store,
	sender notify.Sender,
	contacts ContactResolver,
	objects objectstore.Gateway,
	logger logging.Logger,
	opts GateOptions,
) *AccessGate {
	return &AccessGate{
		db:          db,
		repomanager: m,
		codes:       codes,
		sender:      sender,
		contacts:    contacts,
		objects:     objects,
		logger:      logger.With("module", "gate"),
		opts:        opts,
		newCode:     func() (string, error) { return common.MakeRandDigitString(CodeLength) },
	}
}

// RequestCode issues a fresh one-time code for fileID and emails it to the
// owner. Any earlier code for the file is replaced. If delivery fails the
// stored code stays live until its TTL.
func (g *AccessGate) RequestCode(ctx context.Context, fileID, userID string) (err error) {
	defer func() { metrics.ObserveGate(metrics.OpRequestCode, err) }()

	f, err := ownedFile(ctx, g.repomanager.Files(g.db), fileID, userID)
	if err != nil {
		return err
	}

	recipient, err := g.contacts.ContactAddress(ctx, f.UserID)
	if err != nil {
		// an owner without a user row has nowhere to send to; anything else
		// is the user store failing
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: resolve recipient: %w", common.ErrNotificationFailed, err)
		}
		g.logger.Error(ctx, "recipient lookup failed", "file_id", f.ID, "error", err)
		return fmt.Errorf("%w: resolve recipient: %w", common.ErrStorageUnavailable, err)
	}

	code, err := g.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	if err := g.codes.Store(ctx, f.ID, code, g.opts.CodeTTL); err != nil {
		g.logger.Error(ctx, "code store failed", "file_id", f.ID, "error", err)
		return err
	}

	if err := g.sender.Send(ctx, recipient, code); err != nil {
		g.logger.Error(ctx, "code delivery failed", "file_id", f.ID, "error", err)
		if !errors.Is(err, common.ErrNotificationFailed) {
			err = fmt.Errorf("%w: %w", common.ErrNotificationFailed, err)
		}
		return err
	}

	g.logger.Info(ctx, "code issued", "file_id", f.ID, "ttl", g.opts.CodeTTL)
	return nil
}

// Verify consumes code for fileID, checks geohash against the location
// recorded at upload and returns a time-limited download capability.
//
// The code is consumed before the location check, so a location mismatch
// still burns it.
func (g *AccessGate) Verify(ctx context.Context, fileID, userID, geohash, code string) (rc *models.RetrievalCapability, err error) {
	defer func() { metrics.ObserveGate(metrics.OpVerify, err) }()

	f, err := ownedFile(ctx, g.repomanager.Files(g.db), fileID, userID)
	if err != nil {
		return nil, err
	}

	ok, err := g.codes.VerifyAndConsume(ctx, f.ID, code)
	if err != nil {
		g.logger.Error(ctx, "code check failed", "file_id", f.ID, "error", err)
		return nil, err
	}
	if !ok {
		g.logger.Warn(ctx, "invalid or expired code", "file_id", f.ID)
		return nil, common.ErrInvalidOrExpiredCode
	}

	if !f.GeohashMatches(geohash) {
		g.logger.Warn(ctx, "location mismatch", "file_id", f.ID)
		return nil, common.ErrLocationMismatch
	}

	rc, err = g.objects.IssueRetrievalCapability(ctx, f.StorageKey, g.opts.DownloadExpiry, f.DisplayName)
	if err != nil {
		g.logger.Error(ctx, "issue download url failed", "file_id", f.ID, "error", err)
		if !errors.Is(err, common.ErrObjectMissing) && !errors.Is(err, common.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
		}
		return nil, err
	}

	g.logger.Info(ctx, "download granted", "file_id", f.ID, "expires_at", rc.ExpiresAt)
	return rc, nil
}
