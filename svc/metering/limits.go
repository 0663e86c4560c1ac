package metering

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/section"
	"github.com/dmitrymomot/talktime/pkg/subscription"
)

// SectionQuota is a CountQuota scoped to one role-play section.
type SectionQuota struct {
	Section string `json:"section"`
	quota.CountQuota
}

// CheckScenarioLimit reports how many scenarios the user may still create today.
func (s *Service) CheckScenarioLimit(ctx context.Context, userID uuid.UUID) (*quota.CountQuota, error) {
	q, err := s.scenarioQuota(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "check_scenario_limit", userID, err)
	}
	return &q, nil
}

// RecordScenarioCreation counts one created scenario. It refuses when the
// daily limit is already reached.
func (s *Service) RecordScenarioCreation(ctx context.Context, userID uuid.UUID) (*quota.CountQuota, error) {
	q, err := s.scenarioQuota(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "record_scenario_creation", userID, err)
	}
	if !q.Allowed {
		s.metrics.CountRecords.WithLabelValues("scenario", "rejected").Inc()
		s.log.InfoContext(ctx, "scenario limit reached", logger.UserID(userID), logger.Reason("scenario_limit_exceeded"))
		return nil, quota.Reject(quota.ErrScenarioLimitExceeded, q.Limit, q.Used, q.Remaining)
	}

	used, err := s.daily.RecordScenario(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "record_scenario_creation", userID, err)
	}
	s.metrics.CountRecords.WithLabelValues("scenario", "recorded").Inc()

	next := quota.NewCountQuota(q.Limit, used)
	return &next, nil
}

func (s *Service) scenarioQuota(ctx context.Context, userID uuid.UUID) (quota.CountQuota, error) {
	if userID == uuid.Nil {
		return quota.CountQuota{}, quota.ErrUnauthenticated
	}
	sub, err := s.subs.Resolve(ctx, userID)
	if err != nil {
		return quota.CountQuota{}, err
	}
	rec, err := s.daily.Today(ctx, userID)
	if err != nil {
		return quota.CountQuota{}, err
	}
	tier, trial := planOf(sub)
	return quota.NewCountQuota(quota.ScenarioCreationLimit(tier, trial), rec.Scenarios()), nil
}

// CheckRoleplaySectionLimit reports how many more sessions the user may play
// in the section today.
func (s *Service) CheckRoleplaySectionLimit(ctx context.Context, userID uuid.UUID, name string) (*SectionQuota, error) {
	q, err := s.sectionQuota(ctx, userID, name)
	if err != nil {
		return nil, s.fail(ctx, "check_section_limit", userID, err)
	}
	return q, nil
}

// RecordRoleplaySession counts one completed session in the section. It
// refuses when the section's daily limit is already reached.
func (s *Service) RecordRoleplaySession(ctx context.Context, userID uuid.UUID, name string) (*SectionQuota, error) {
	q, err := s.sectionQuota(ctx, userID, name)
	if err != nil {
		return nil, s.fail(ctx, "record_section_session", userID, err)
	}
	if !q.Allowed {
		s.metrics.CountRecords.WithLabelValues("section", "rejected").Inc()
		s.log.InfoContext(ctx, "section limit reached",
			logger.UserID(userID),
			logger.Section(q.Section),
			logger.Reason("section_limit_exceeded"),
		)
		r := quota.Reject(quota.ErrSectionLimitExceeded, q.Limit, q.Used, q.Remaining)
		r.Activity = quota.ActivityRoleplay
		r.Section = q.Section
		return nil, r
	}

	used, err := s.sections.RecordSession(ctx, userID, q.Section)
	if err != nil {
		return nil, s.fail(ctx, "record_section_session", userID, err)
	}
	s.metrics.CountRecords.WithLabelValues("section", "recorded").Inc()

	return &SectionQuota{Section: q.Section, CountQuota: quota.NewCountQuota(q.Limit, used)}, nil
}

func (s *Service) sectionQuota(ctx context.Context, userID uuid.UUID, name string) (*SectionQuota, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}
	name, err := section.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := s.sections.SessionsToday(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	tier, trial := planOf(sub)
	return &SectionQuota{
		Section:    name,
		CountQuota: quota.NewCountQuota(quota.SectionSessionLimit(tier, trial), used),
	}, nil
}

func planOf(sub *subscription.Subscription) (quota.Tier, bool) {
	if sub == nil {
		return quota.TierNone, false
	}
	return sub.Tier, sub.IsFreeTrial
}
