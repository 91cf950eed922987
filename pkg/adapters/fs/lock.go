package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aretw0/tally/pkg/core"
)

// LockSuffix is appended to the store path to name its advisory lock file.
const LockSuffix = ".lock"

// DefaultStaleLockAge is how old a lock may grow before it is taken over even
// when its holder looks alive.
const DefaultStaleLockAge = 10 * time.Minute

var errLockHeld = errors.New("lock held")

// lockInfo is the content of a lock file.
type lockInfo struct {
	Token   string    `json:"token"`
	PID     int       `json:"pid"`
	Host    string    `json:"host"`
	Created time.Time `json:"created"`
}

func (i lockInfo) String() string {
	return fmt.Sprintf("pid %d on %s since %s", i.PID, i.Host, i.Created.Format(time.RFC3339))
}

// fileLock is an advisory lock: a file that appears atomically with the
// owner's lockInfo in it. Only the owner removes it.
type fileLock struct {
	path  string
	token string
}

// lockOptions tunes acquireLock.
type lockOptions struct {
	timeout  time.Duration // zero makes a single attempt
	staleAge time.Duration
	logger   *slog.Logger
}

// acquireLock creates the lock file, retrying with exponential backoff while
// another process holds it. A lock whose holder is gone, or that is older
// than staleAge, is moved aside and retried at once.
func acquireLock(ctx context.Context, path string, opts lockOptions) (*fileLock, error) {
	if opts.logger == nil {
		opts.logger = slog.New(slog.DiscardHandler)
	}
	if opts.staleAge <= 0 {
		opts.staleAge = DefaultStaleLockAge
	}
	host, _ := os.Hostname()
	info := lockInfo{Token: uuid.NewString(), PID: os.Getpid(), Host: host}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if opts.timeout > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 10 * time.Millisecond
		exp.MaxInterval = 250 * time.Millisecond
		exp.MaxElapsedTime = opts.timeout
		policy = exp
	}

	var fatal error
	attempt := func() error {
		for range 2 {
			info.Created = time.Now().UTC()
			err := publishLock(path, info)
			if err == nil {
				return nil
			}
			if !os.IsExist(err) {
				fatal = err
				return nil
			}
			broken, err := breakStaleLock(path, opts, host)
			if err != nil {
				fatal = err
				return nil
			}
			if !broken {
				break
			}
		}
		opts.logger.Debug("store lock busy, retrying", "lock", path)
		return errLockHeld
	}

	err := backoff.Retry(attempt, backoff.WithContext(policy, ctx))
	if fatal != nil {
		return nil, core.NewError(core.ErrIO, "lock", fatal)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, core.NewError(core.ErrIO, "lock", cerr)
	}
	if err != nil {
		detail := path
		if holder, rerr := readLock(path); rerr == nil {
			detail = fmt.Sprintf("%s held by %s", path, holder)
		}
		return nil, &core.Error{Kind: core.ErrLocked, Op: "lock", Detail: detail}
	}

	opts.logger.Debug("store lock acquired", "lock", path, "token", info.Token)
	return &fileLock{path: path, token: info.Token}, nil
}

// publishLock writes info to a scratch file and links it into place, so the
// lock file never exists without its content. It fails with an os.IsExist
// error while another lock is in place.
func publishLock(path string, info lockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), TempFilePrefix+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return err
	}
	return os.Link(tmp.Name(), path)
}

func readLock(path string) (lockInfo, error) {
	var info lockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("lock %s is not readable: %w", path, err)
	}
	if info.Token == "" {
		return info, fmt.Errorf("lock %s has no owner token", path)
	}
	return info, nil
}

// staleReason returns why the lock described by info (or by readErr when it
// could not be parsed) may be taken over, or "" while it is live.
func staleReason(info lockInfo, readErr error, localHost string, maxAge time.Duration) string {
	if readErr != nil {
		return "unrecognized lock content"
	}
	if info.Host == localHost && info.PID > 0 {
		if alive, err := process.PidExists(int32(info.PID)); err == nil && !alive {
			return "holder process is gone"
		}
	}
	if !info.Created.IsZero() && time.Since(info.Created) > maxAge {
		return "lock is older than " + maxAge.String()
	}
	return ""
}

// breakStaleLock moves a stale lock aside. It reports whether it did.
func breakStaleLock(path string, opts lockOptions, localHost string) (bool, error) {
	info, err := readLock(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	reason := staleReason(info, err, localHost, opts.staleAge)
	if reason == "" {
		return false, nil
	}

	aside := fmt.Sprintf("%s.stale-%d", path, time.Now().UnixNano())
	if err := os.Rename(path, aside); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to move stale lock %s: %w", path, err)
	}

	// Another contender may have replaced the stale lock between the read and
	// the rename; hand that one back.
	if moved, merr := readLock(aside); merr == nil && moved.Token != info.Token {
		if lerr := os.Link(aside, path); lerr == nil {
			os.Remove(aside)
			return false, nil
		}
	}
	os.Remove(aside)

	opts.logger.Warn("stale store lock taken over", "lock", path, "reason", reason, "holder", info.String())
	return true, nil
}

// release removes the lock file if it still carries this lock's token.
func (l *fileLock) release() error {
	info, err := readLock(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Token != l.token {
		return fmt.Errorf("lock %s is owned by %s", l.path, info)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove lock %s: %w", l.path, err)
	}
	return nil
}
