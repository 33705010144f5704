package game

import (
	"context"
	"time"

	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/sandbox"
)

type CodeInput struct {
	RoomID    string `json:"roomId" validate:"max=32"`
	ProblemID string `json:"problemId" validate:"required,max=128"`
	Language  string `json:"language" validate:"required,max=32"`
	Code      string `json:"code"`
}

type ParticipantCodeInput struct {
	RoomID       string `json:"roomId" validate:"max=32"`
	TargetUserID string `json:"targetUserId" validate:"required,max=128"`
	ProblemID    string `json:"problemId" validate:"required,max=128"`
	Language     string `json:"language" validate:"max=32"`
}

type CatalogInput struct {
	RoomID       string   `json:"roomId" validate:"max=32"`
	Topics       []string `json:"topics" validate:"max=32,dive,max=64"`
	Tags         []string `json:"tags" validate:"max=32,dive,max=64"`
	Difficulties []string `json:"difficulties" validate:"max=3,dive,max=16"`
	Search       string   `json:"search" validate:"max=200"`
}

const (
	resultAccepted    = "accepted"
	resultWrongAnswer = "wrong_answer"
)

func validateCode(in CodeInput, allowEmpty bool) (sandbox.Language, error) {
	if !sandbox.IsLanguageSupported(in.Language) {
		return "", ErrUnsupportedLanguage
	}
	if !allowEmpty && len(in.Code) == 0 {
		return "", ErrEmptyCode
	}
	if len(in.Code) > sandbox.MaxCodeLength {
		return "", ErrCodeTooLarge.withMessage("Code is too large (max %d characters)", sandbox.MaxCodeLength)
	}
	return sandbox.Language(in.Language), nil
}

// activeProblem checks that the arena is running and owns problemID. Called
// with room.mu held.
func activeProblem(room *Room, problemID string) (catalog.Problem, error) {
	if room.status != StatusStarted || room.arena == nil {
		return catalog.Problem{}, ErrArenaNotActive
	}
	p, ok := room.problemSet.problem(problemID)
	if !ok {
		return catalog.Problem{}, ErrProblemNotInRoom
	}
	return p, nil
}

func (s *Service) storeDraft(room *Room, userID, problemID string, lang sandbox.Language, code string, now time.Time) {
	p := room.participant(userID)
	ps := p.problem(problemID)
	ps.codeByLanguage[lang] = code
	ps.lastLanguage = lang
	ps.updatedAt = now
	p.lastActivityAt = now
}

// UpdateDraft keeps the latest code per language and tells the other members
// who is editing what.
func (s *Service) UpdateDraft(sess *Session, in CodeInput) error {
	lang, err := validateCode(in, true)
	if err != nil {
		return err
	}
	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if _, err := activeProblem(room, in.ProblemID); err != nil {
		return err
	}
	now := s.clock.Now()
	s.storeDraft(room, m.identity.UserID, in.ProblemID, lang, in.Code, now)

	presence := PresenceView{
		RoomID:    room.code,
		UserID:    m.identity.UserID,
		Username:  m.identity.Username,
		ProblemID: in.ProblemID,
		Language:  string(lang),
		UpdatedAt: now.UnixMilli(),
	}
	for _, other := range orderedMembers(room) {
		if other.session != sess {
			other.session.emit(EventCodePresence, presence)
		}
	}
	return nil
}

func toSandboxTests(tests []catalog.TestCase) []sandbox.TestCase {
	out := make([]sandbox.TestCase, len(tests))
	for i, tc := range tests {
		out[i] = sandbox.TestCase(tc)
	}
	return out
}

// RunCode executes the code against the problem's sample tests. It blocks
// for the duration of the execution and never touches the scoreboard.
func (s *Service) RunCode(ctx context.Context, sess *Session, in CodeInput) error {
	lang, err := validateCode(in, false)
	if err != nil {
		return err
	}

	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	problem, err := activeProblem(room, in.ProblemID)
	if err != nil {
		room.mu.Unlock()
		return err
	}
	s.storeDraft(room, m.identity.UserID, in.ProblemID, lang, in.Code, s.clock.Now())
	code := room.code
	room.mu.Unlock()

	if !sess.beginExecution() {
		return ErrExecutionInProgress
	}
	defer sess.endExecution()

	result := s.executor.Execute(ctx, sandbox.Request{
		Language:           lang,
		Code:               in.Code,
		Tests:              toSandboxTests(problem.SampleTests(s.opts.SampleTestLimit)),
		StopOnFirstFailure: false,
	})
	s.logExecution("run", code, sess, in.ProblemID, result)
	sess.emit(EventCodeRunResult, RunResultView{RoomID: code, ProblemID: in.ProblemID, Result: result})
	return nil
}

// SubmitSolution grades the code against every test of the problem.
func (s *Service) SubmitSolution(ctx context.Context, sess *Session, in CodeInput) error {
	lang, err := validateCode(in, false)
	if err != nil {
		return err
	}

	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	problem, err := activeProblem(room, in.ProblemID)
	if err != nil {
		room.mu.Unlock()
		return err
	}
	userID := m.identity.UserID
	if !room.isParticipant(userID) {
		room.mu.Unlock()
		return ErrNotParticipant
	}
	now := s.clock.Now()
	if !now.Before(room.arena.endsAt) {
		s.finish(room, FinishTimeUp)
		room.mu.Unlock()
		return ErrArenaNotActive.withMessage("Arena time is over")
	}
	s.storeDraft(room, userID, in.ProblemID, lang, in.Code, now)
	code := room.code
	startedAt := room.arena.startedAt
	room.mu.Unlock()

	if !sess.beginExecution() {
		return ErrExecutionInProgress
	}
	defer sess.endExecution()

	result := s.executor.Execute(ctx, sandbox.Request{
		Language:           lang,
		Code:               in.Code,
		Tests:              toSandboxTests(problem.AllTests()),
		StopOnFirstFailure: true,
	})
	s.logExecution("submit", code, sess, in.ProblemID, result)

	return s.grade(code, startedAt, sess, userID, in.ProblemID, lang, result)
}

var errGradedTooLate = ErrArenaNotActive.withMessage("Arena finished before this submission was graded")

func (s *Service) grade(code string, startedAt time.Time, sess *Session, userID, problemID string, lang sandbox.Language, result sandbox.Result) error {
	room, err := s.lockRoom(code)
	if err != nil {
		return errGradedTooLate
	}
	defer room.mu.Unlock()

	if room.status != StatusStarted || room.arena == nil || !room.arena.startedAt.Equal(startedAt) {
		return errGradedTooLate
	}
	now := s.clock.Now()
	if !now.Before(room.arena.endsAt) {
		s.finish(room, FinishTimeUp)
		return errGradedTooLate
	}

	p := room.participant(userID)
	ps := p.problem(problemID)
	p.lastActivityAt = now

	view := SubmissionView{RoomID: room.code, ProblemID: problemID, Execution: result}
	if result.Scored() {
		view.Scored = true
		view.Accepted = result.Accepted()
		view.NewlySolved = applyVerdict(p, ps, lang, result, now, room.problemSet.penaltySeconds)
	}

	sess.emit(EventSolutionSubmitted, view)
	s.broadcastArena(room, EventArenaState)
	if room.allSolved() {
		s.finish(room, FinishAllSolved)
	}
	return nil
}

// applyVerdict records one scored submission and reports whether it solved
// the problem for the first time. Wrong answers on a solved problem carry no
// penalty.
func applyVerdict(p *participantState, ps *problemState, lang sandbox.Language, result sandbox.Result, now time.Time, penaltySeconds int) bool {
	p.submissions++
	p.lastSubmissionAt = now
	p.totalRuntimeMs += result.RuntimeMs
	ps.attempts++
	ps.lastRuntimeMs = result.RuntimeMs
	ps.lastLanguage = lang

	if result.Accepted() {
		ps.lastResult = resultAccepted
		if ps.solved() {
			return false
		}
		ps.solvedAt = now
		p.solvedCount++
		p.acceptedSubmissions++
		return true
	}

	ps.lastResult = resultWrongAnswer
	if result.ErrorType != "" {
		ps.lastResult = string(result.ErrorType)
	}
	if !ps.solved() {
		ps.wrongAttempts++
		p.wrongSubmissions++
		p.penaltyMs += int64(penaltySeconds) * 1000
	}
	return false
}

func (s *Service) logExecution(kind, code string, sess *Session, problemID string, result sandbox.Result) {
	event := s.logger.Debug()
	if result.ErrorType == sandbox.ErrorInfra {
		event = s.logger.Warn()
	}
	event.Str("room", code).
		Str("user", sess.identity.UserID).
		Str("problem", problemID).
		Str("kind", kind).
		Str("errorType", string(result.ErrorType)).
		Int("passed", result.PassedCount).
		Int64("runtimeMs", result.RuntimeMs).
		Msg(result.Message)
}

// finish ends the arena. Only the first call has any effect. Called with
// room.mu held.
func (s *Service) finish(room *Room, reason FinishReason) {
	if room.status == StatusFinished || room.arena == nil {
		return
	}
	s.timers.cancel(room.code, arenaExpiry)
	room.status = StatusFinished
	room.arena.finishedAt = s.clock.Now()
	room.arena.finishedReason = reason

	s.logger.Info().Str("room", room.code).Str("reason", string(reason)).Msg("arena finished")
	s.broadcastArena(room, EventRoomFinished)
	s.broadcastLobby(room)
}

// RequestParticipantCode reveals another participant's code once the arena
// has finished.
func (s *Service) RequestParticipantCode(sess *Session, in ParticipantCodeInput) error {
	if in.Language != "" && !sandbox.IsLanguageSupported(in.Language) {
		return ErrUnsupportedLanguage
	}
	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if room.status != StatusFinished || room.arena == nil {
		return ErrArenaNotFinished
	}
	if !room.isParticipant(m.identity.UserID) {
		return ErrNotParticipant
	}
	if !room.isParticipant(in.TargetUserID) {
		return ErrNotParticipant.withMessage("Target user is not a participant of this room")
	}
	if _, ok := room.problemSet.problem(in.ProblemID); !ok {
		return ErrProblemNotInRoom
	}

	target, ok := room.arena.participants[in.TargetUserID]
	if !ok {
		return ErrCodeNotFound
	}
	ps, ok := target.problems[in.ProblemID]
	if !ok {
		return ErrCodeNotFound
	}
	lang := sandbox.Language(in.Language)
	code, ok := ps.codeByLanguage[lang]
	if !ok {
		lang = ps.lastLanguage
		code, ok = ps.codeByLanguage[lang]
	}
	if !ok {
		return ErrCodeNotFound
	}

	sess.emit(EventParticipantCode, ParticipantCodeView{
		RoomID:       room.code,
		TargetUserID: in.TargetUserID,
		Username:     room.participantProfiles[in.TargetUserID].Username,
		ProblemID:    in.ProblemID,
		Language:     string(lang),
		Code:         code,
		Solved:       ps.solved(),
		Attempts:     ps.attempts,
	})
	return nil
}

func (s *Service) GetArenaState(sess *Session, in RoomInput) error {
	room, _, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if room.arena == nil {
		return ErrArenaNotActive
	}
	s.emitArena(room, sess, EventArenaState)
	return nil
}

// GetProblemCatalog lists the catalog. When the session sits in a room the
// reply also carries that room's configured problem set.
func (s *Service) GetProblemCatalog(sess *Session, in CatalogInput) error {
	view := CatalogView{
		Problems: s.problems.List(catalog.Filter{
			Topics:       in.Topics,
			Tags:         in.Tags,
			Difficulties: in.Difficulties,
			Search:       in.Search,
		}),
		Facets: s.problems.Facets(),
	}

	if in.RoomID != "" || sess.RoomCode() != "" {
		room, _, err := s.memberRoom(sess, in.RoomID)
		if err == nil {
			view.RoomID = room.code
			view.SelectedProblemSet = buildProblemSetView(room.problemSet)
			room.mu.Unlock()
		}
	}
	sess.emit(EventProblemCatalog, view)
	return nil
}
