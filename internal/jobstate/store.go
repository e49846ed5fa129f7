// Package jobstate tracks the jobs a user has saved or applied to and mirrors
// both lists into durable slots.
//
// A Store is built per owner and is not safe for concurrent use. Two Stores
// for the same owner overwrite each other's slots (last write wins).
package jobstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"hiredup/internal/jobs"
	"hiredup/internal/notify"
	"hiredup/internal/slots"
)

// Store holds one owner's saved and applied jobs in insertion order.
type Store struct {
	slots    slots.Store
	owner    string
	notifier notify.Notifier
	logger   *slog.Logger

	saved   []jobs.Job
	applied []jobs.Job
}

// Load 从持久化槽位恢复收藏与投递列表；槽位缺失、读取失败或内容损坏时按空列表处理。
func Load(ctx context.Context, store slots.Store, owner string, notifier notify.Notifier, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		slots:    store,
		owner:    owner,
		notifier: notifier,
		logger:   logger.With(slog.String("owner", owner)),
	}
	s.saved = s.loadList(ctx, slots.SavedJobs)
	s.applied = s.loadList(ctx, slots.AppliedJobs)
	return s
}

func (s *Store) loadList(ctx context.Context, name string) []jobs.Job {
	data, ok, err := s.slots.Get(ctx, s.owner, name)
	if err != nil {
		s.logger.Warn("read job slot failed, starting empty", slog.String("slot", name), slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}
	var list []jobs.Job
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("job slot is corrupt, starting empty", slog.String("slot", name), slog.Any("error", err))
		return nil
	}
	return list
}

func (s *Store) persist(ctx context.Context, name string, list []jobs.Job) error {
	if list == nil {
		list = []jobs.Job{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.slots.Set(ctx, s.owner, name, data); err != nil {
		return fmt.Errorf("persist %s: %w", name, err)
	}
	return nil
}

func (s *Store) emit(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, s.owner, n); err != nil {
		s.logger.Warn("deliver notification failed", slog.String("kind", string(n.Kind)), slog.Any("error", err))
	}
}

// Save adds job to the saved list. It reports false and does nothing when the
// job is already saved.
func (s *Store) Save(ctx context.Context, job jobs.Job) (bool, error) {
	if s.IsSaved(job.ID) {
		return false, nil
	}
	s.saved = append(s.saved, job)
	if err := s.persist(ctx, slots.SavedJobs, s.saved); err != nil {
		return true, err
	}
	s.emit(ctx, notify.Notification{
		Kind:        notify.KindJobSaved,
		Title:       "Job saved!",
		Description: fmt.Sprintf("%s at %s added to your saved jobs.", job.Title, job.Company),
		JobID:       job.ID,
	})
	return true, nil
}

// Unsave removes jobID from the saved list. Removing an unknown ID is not an error.
func (s *Store) Unsave(ctx context.Context, jobID string) error {
	kept := s.saved[:0:0]
	for _, job := range s.saved {
		if job.ID != jobID {
			kept = append(kept, job)
		}
	}
	s.saved = kept
	if err := s.persist(ctx, slots.SavedJobs, s.saved); err != nil {
		return err
	}
	s.emit(ctx, notify.Notification{
		Kind:        notify.KindJobRemoved,
		Title:       "Job removed",
		Description: "The job has been removed from your saved jobs.",
		JobID:       jobID,
	})
	return nil
}

// Apply records an application. Applications are permanent: there is no way
// to withdraw one. A repeated Apply reports false and only notifies.
func (s *Store) Apply(ctx context.Context, job jobs.Job) (bool, error) {
	if s.IsApplied(job.ID) {
		s.emit(ctx, notify.Notification{
			Kind:        notify.KindAlreadyApplied,
			Title:       "Already applied",
			Description: "You've already applied for this job.",
			JobID:       job.ID,
		})
		return false, nil
	}
	s.applied = append(s.applied, job)
	if err := s.persist(ctx, slots.AppliedJobs, s.applied); err != nil {
		return true, err
	}
	s.emit(ctx, notify.Notification{
		Kind:        notify.KindApplicationSubmitted,
		Title:       "Application submitted!",
		Description: fmt.Sprintf("You've successfully applied for %s at %s.", job.Title, job.Company),
		JobID:       job.ID,
	})
	return true, nil
}

func (s *Store) IsSaved(jobID string) bool {
	return contains(s.saved, jobID)
}

func (s *Store) IsApplied(jobID string) bool {
	return contains(s.applied, jobID)
}

// Saved returns a copy of the saved list.
func (s *Store) Saved() []jobs.Job {
	return append([]jobs.Job(nil), s.saved...)
}

// Applied returns a copy of the applied list.
func (s *Store) Applied() []jobs.Job {
	return append([]jobs.Job(nil), s.applied...)
}

func contains(list []jobs.Job, id string) bool {
	for _, job := range list {
		if job.ID == id {
			return true
		}
	}
	return false
}
