package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/cache"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
)

// Notifier enqueues a user-facing notification. Callers treat it as
// fire-and-forget: an error never propagates into the operation that
// triggered it.
type Notifier interface {
	Notify(userID uint, title, message, notifType string, studyID *uint) error
}

// StudyService owns the membership lifecycle of a study: capacity, role and
// status invariants, and the notifications that follow its own successful
// transitions.
type StudyService struct {
	studyRepo  repository.StudyRepositoryInterface
	memberRepo repository.StudyMemberRepositoryInterface
	userRepo   repository.UserRepositoryInterface
	notifier   Notifier
	studyCache *cache.StudyCache
	log        *zap.Logger

	// One mutex per study id, held across the capacity check-and-update so
	// that two joins racing for the last slot serialize. Contention is local
	// to a single study.
	locks sync.Map
}

func NewStudyService(
	studyRepo repository.StudyRepositoryInterface,
	memberRepo repository.StudyMemberRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	notifier Notifier,
	studyCache *cache.StudyCache,
	log *zap.Logger,
) *StudyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StudyService{
		studyRepo:  studyRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		studyCache: studyCache,
		log:        log,
	}
}

func (s *StudyService) lockFor(studyID uint) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(studyID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

type CreateStudyInput struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Location        string           `json:"location"`
	MaxParticipants int              `json:"max_participants"`
	StartDate       time.Time        `json:"start_date"`
	EndDate         time.Time        `json:"end_date"`
	StudyType       models.StudyType `json:"study_type"`
	MeetingLink     string           `json:"meeting_link"`
	ContactInfo     string           `json:"contact_info"`
}

// CreateStudy persists a study together with its leader membership in one
// atomic unit. The new study starts recruiting with the leader already
// counted.
func (s *StudyService) CreateStudy(leaderID uint, input CreateStudyInput) (*models.Study, error) {
	// The request-validation layer already bounds capacity; re-check here so
	// the invariant does not depend on the transport.
	if input.MaxParticipants < models.MinParticipants || input.MaxParticipants > models.MaxParticipants {
		return nil, apperr.Invalid("invalid_capacity", fmt.Sprintf("max participants must be between %d and %d", models.MinParticipants, models.MaxParticipants))
	}

	leader, err := s.userRepo.FindByID(leaderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found")
		}
		return nil, apperr.Unavailable("user_lookup", err)
	}

	study := &models.Study{
		Title:               input.Title,
		Description:         input.Description,
		Category:            input.Category,
		Location:            input.Location,
		MaxParticipants:     input.MaxParticipants,
		CurrentParticipants: 1,
		Status:              models.StudyRecruiting,
		StartDate:           input.StartDate,
		EndDate:             input.EndDate,
		StudyType:           input.StudyType,
		MeetingLink:         input.MeetingLink,
		ContactInfo:         input.ContactInfo,
		LeaderID:            leader.ID,
	}
	member := &models.StudyMember{
		UserID:   leader.ID,
		Role:     models.RoleLeader,
		Status:   models.MemberActive,
		JoinedAt: time.Now(),
	}

	if err := s.studyRepo.CreateWithLeader(study, member); err != nil {
		return nil, apperr.Unavailable("study_create", err)
	}

	return s.findStudy(study.ID)
}

type UpdateStudyInput struct {
	Title           *string             `json:"title"`
	Description     *string             `json:"description"`
	Category        *string             `json:"category"`
	Location        *string             `json:"location"`
	MaxParticipants *int                `json:"max_participants"`
	StartDate       *time.Time          `json:"start_date"`
	EndDate         *time.Time          `json:"end_date"`
	StudyType       *models.StudyType   `json:"study_type"`
	MeetingLink     *string             `json:"meeting_link"`
	ContactInfo     *string             `json:"contact_info"`
	Status          *models.StudyStatus `json:"status"`
}

// UpdateStudy applies a merge patch: absent fields leave existing values
// untouched. Only the leader may update. Non-leader members get a
// best-effort notification afterwards.
func (s *StudyService) UpdateStudy(studyID, callerID uint, input UpdateStudyInput) (*models.Study, error) {
	study, err := s.findStudy(studyID)
	if err != nil {
		return nil, err
	}
	if study.LeaderID != callerID {
		return nil, apperr.Forbidden("not_leader", "only the leader can update the study")
	}

	if input.MaxParticipants != nil &&
		(*input.MaxParticipants < models.MinParticipants || *input.MaxParticipants > models.MaxParticipants) {
		return nil, apperr.Invalid("invalid_capacity", fmt.Sprintf("max participants must be between %d and %d", models.MinParticipants, models.MaxParticipants))
	}
	// Shrinking below the live member count would leave the study over
	// capacity.
	if input.MaxParticipants != nil && *input.MaxParticipants < study.CurrentParticipants {
		return nil, apperr.Conflict("capacity_below_members", "capacity below current member count")
	}
	if input.StudyType != nil && !models.ValidStudyType(*input.StudyType) {
		return nil, apperr.Invalid("invalid_study_type", "invalid study type")
	}
	if input.Status != nil && !models.ValidStudyStatus(*input.Status) {
		return nil, apperr.Invalid("invalid_status", "invalid study status")
	}

	cancelled := false
	if input.Title != nil {
		study.Title = *input.Title
	}
	if input.Description != nil {
		study.Description = *input.Description
	}
	if input.Category != nil {
		study.Category = *input.Category
	}
	if input.Location != nil {
		study.Location = *input.Location
	}
	if input.MaxParticipants != nil {
		study.MaxParticipants = *input.MaxParticipants
	}
	if input.StartDate != nil {
		study.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		study.EndDate = *input.EndDate
	}
	if input.StudyType != nil {
		study.StudyType = *input.StudyType
	}
	if input.MeetingLink != nil {
		study.MeetingLink = *input.MeetingLink
	}
	if input.ContactInfo != nil {
		study.ContactInfo = *input.ContactInfo
	}
	if input.Status != nil {
		cancelled = *input.Status == models.StudyCancelled && study.Status != models.StudyCancelled
		study.Status = *input.Status
	}

	if err := s.studyRepo.Save(study); err != nil {
		return nil, apperr.Unavailable("study_update", err)
	}
	s.invalidate(studyID)

	notifType := models.NotifyStudyUpdate
	title := "Study updated"
	message := fmt.Sprintf("'%s' has been updated.", study.Title)
	if cancelled {
		notifType = models.NotifyStudyCancel
		title = "Study cancelled"
		message = fmt.Sprintf("'%s' has been cancelled.", study.Title)
	}
	s.notifyMembersAsync(study, notifType, title, message)

	return study, nil
}

// Join adds userID as an active member. Preconditions are checked in contract
// order; the first failure wins. The membership insert and the counter
// increment commit as one atomic unit, and the leader notification is
// enqueued only after that unit commits.
func (s *StudyService) Join(studyID, userID uint) (*models.Study, error) {
	mu := s.lockFor(studyID)
	mu.Lock()
	defer mu.Unlock()

	study, err := s.findStudy(studyID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found")
		}
		return nil, apperr.Unavailable("user_lookup", err)
	}

	if study.LeaderID == userID {
		return nil, apperr.Forbidden("own_study", "cannot join own group")
	}
	if _, err := s.memberRepo.FindActive(studyID, userID); err == nil {
		return nil, apperr.Conflict("already_member", "already a member")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unavailable("member_lookup", err)
	}
	if !study.Status.Open() {
		return nil, apperr.Conflict("study_not_open", "group not open")
	}
	if study.IsFull() {
		return nil, apperr.Conflict("study_full", "group full")
	}
	if study.StartDate.Before(time.Now()) {
		return nil, apperr.Conflict("already_started", "already started")
	}

	member := &models.StudyMember{
		UserID:   userID,
		Role:     models.RoleMember,
		Status:   models.MemberActive,
		JoinedAt: time.Now(),
	}
	joined, err := s.studyRepo.AddMemberIfCapacity(studyID, member)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("study_not_found", "study not found")
		}
		return nil, apperr.Unavailable("study_join", err)
	}
	if !joined {
		return nil, apperr.Conflict("study_full", "group full")
	}
	s.invalidate(studyID)

	s.notifyAsync(study.LeaderID, "New member joined",
		fmt.Sprintf("%s joined '%s'.", user.Nickname, study.Title),
		models.NotifyStudyJoin, studyID)

	return s.findStudy(studyID)
}

// Leave marks the caller's membership inactive and decrements the counter in
// one atomic unit. The membership row is kept as history; the leader's
// membership never goes through this path.
func (s *StudyService) Leave(studyID, userID uint) error {
	mu := s.lockFor(studyID)
	mu.Lock()
	defer mu.Unlock()

	study, err := s.findStudy(studyID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user_not_found", "user not found")
		}
		return apperr.Unavailable("user_lookup", err)
	}

	member, err := s.memberRepo.FindActive(studyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Conflict("not_member", "not a member")
		}
		return apperr.Unavailable("member_lookup", err)
	}
	if member.Role == models.RoleLeader {
		return apperr.Forbidden("leader_cannot_leave", "leader cannot leave")
	}

	now := time.Now()
	member.Status = models.MemberInactive
	member.LeftAt = &now
	if err := s.studyRepo.DeactivateMemberAndDecrement(member); err != nil {
		return apperr.Unavailable("study_leave", err)
	}
	s.invalidate(studyID)

	s.notifyAsync(study.LeaderID, "Member left",
		fmt.Sprintf("%s left '%s'.", user.Nickname, study.Title),
		models.NotifyStudyLeave, studyID)

	return nil
}

// DeleteStudy removes the study with all of its memberships and posts. Only
// the leader may delete; a second delete on the same id reports NotFound.
func (s *StudyService) DeleteStudy(studyID, callerID uint) error {
	mu := s.lockFor(studyID)
	mu.Lock()
	defer mu.Unlock()

	study, err := s.findStudy(studyID)
	if err != nil {
		return err
	}
	if study.LeaderID != callerID {
		return apperr.Forbidden("not_leader", "only the leader can delete the study")
	}

	if err := s.studyRepo.DeleteCascade(studyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("study_not_found", "study not found")
		}
		return apperr.Unavailable("study_delete", err)
	}
	s.invalidate(studyID)
	return nil
}

// IsMember reports whether userID has an active membership. Read-only; used
// by the query side to decorate responses.
func (s *StudyService) IsMember(studyID, userID uint) (bool, error) {
	_, err := s.memberRepo.FindActive(studyID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, apperr.Unavailable("member_lookup", err)
}

// ReconcileParticipants recomputes the participant counter from the active
// membership rows. It is an out-of-band repair for counter drift and never
// runs as part of join or leave.
func (s *StudyService) ReconcileParticipants(studyID, callerID uint) (int, error) {
	mu := s.lockFor(studyID)
	mu.Lock()
	defer mu.Unlock()

	study, err := s.findStudy(studyID)
	if err != nil {
		return 0, err
	}
	if study.LeaderID != callerID {
		return 0, apperr.Forbidden("not_leader", "only the leader can reconcile the study")
	}

	count, err := s.studyRepo.RecountParticipants(studyID)
	if err != nil {
		return 0, apperr.Unavailable("study_reconcile", err)
	}
	s.invalidate(studyID)
	return count, nil
}

func (s *StudyService) findStudy(studyID uint) (*models.Study, error) {
	study, err := s.studyRepo.FindByID(studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("study_not_found", "study not found")
		}
		return nil, apperr.Unavailable("study_lookup", err)
	}
	return study, nil
}

func (s *StudyService) invalidate(studyID uint) {
	if err := s.studyCache.InvalidateStudy(studyID); err != nil {
		s.log.Warn("study cache invalidation failed", zap.Uint("study_id", studyID), zap.Error(err))
	}
}

func (s *StudyService) notifyAsync(userID uint, title, message, notifType string, studyID uint) {
	if s.notifier == nil {
		return
	}
	sid := studyID
	go func() {
		if err := s.notifier.Notify(userID, title, message, notifType, &sid); err != nil {
			s.log.Warn("notification enqueue failed",
				zap.String("type", notifType),
				zap.Uint("user_id", userID),
				zap.Uint("study_id", sid),
				zap.Error(err))
		}
	}()
}

func (s *StudyService) notifyMembersAsync(study *models.Study, notifType, title, message string) {
	if s.notifier == nil {
		return
	}
	members, err := s.memberRepo.ListActiveByStudy(study.ID)
	if err != nil {
		s.log.Warn("member listing for notification failed", zap.Uint("study_id", study.ID), zap.Error(err))
		return
	}
	sid := study.ID
	go func() {
		for _, m := range members {
			if m.Role == models.RoleLeader {
				continue
			}
			if err := s.notifier.Notify(m.UserID, title, message, notifType, &sid); err != nil {
				s.log.Warn("notification enqueue failed",
					zap.String("type", notifType),
					zap.Uint("user_id", m.UserID),
					zap.Uint("study_id", sid),
					zap.Error(err))
			}
		}
	}()
}
