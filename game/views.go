package game

import (
	"time"

	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/sandbox"
)

// Views are read-only projections of a room, built with the room lock held
// at send time. Timestamps are unix milliseconds.

type MemberView struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Ready    bool   `json:"ready"`
}

type ProblemSetView struct {
	ProblemIDs      []string          `json:"problemIds"`
	Problems        []catalog.Summary `json:"problems"`
	DurationSeconds int               `json:"durationSeconds"`
	PenaltySeconds  int               `json:"penaltySeconds"`
	ConfiguredBy    string            `json:"configuredBy"`
	ConfiguredAt    int64             `json:"configuredAt"`
}

type LobbyView struct {
	RoomID          string          `json:"roomId"`
	Status          RoomStatus      `json:"status"`
	Members         []MemberView    `json:"members"`
	MemberCount     int             `json:"memberCount"`
	MaxMembers      int             `json:"maxMembers"`
	AllReady        bool            `json:"allReady"`
	CanStart        bool            `json:"canStart"`
	ProblemSet      *ProblemSetView `json:"problemSet"`
	CountdownEndsAt *int64          `json:"countdownEndsAt"`
}

type ArenaProblemView struct {
	Id          string             `json:"id"`
	Title       string             `json:"title"`
	Difficulty  catalog.Difficulty `json:"difficulty"`
	Topics      []string           `json:"topics"`
	Tags        []string           `json:"tags"`
	Statement   string             `json:"statement"`
	Constraints []string           `json:"constraints"`
	Examples    []catalog.Example  `json:"examples"`
	StarterCode map[string]string  `json:"starterCode"`
	SampleTests []catalog.TestCase `json:"sampleTests"`
}

type ArenaProblemSetView struct {
	ProblemIDs []string           `json:"problemIds"`
	Problems   []ArenaProblemView `json:"problems"`
}

type ProblemProgressView struct {
	ProblemID     string `json:"problemId"`
	Solved        bool   `json:"solved"`
	SolvedAt      *int64 `json:"solvedAt"`
	Attempts      int    `json:"attempts"`
	WrongAttempts int    `json:"wrongAttempts"`
}

type ScoreboardEntry struct {
	Rank             int                   `json:"rank"`
	UserID           string                `json:"userId"`
	Username         string                `json:"username"`
	SolvedCount      int                   `json:"solvedCount"`
	PenaltyMs        int64                 `json:"penaltyMs"`
	PenaltySeconds   int64                 `json:"penaltySeconds"`
	EffectiveTimeMs  int64                 `json:"effectiveTimeMs"`
	WrongSubmissions int                   `json:"wrongSubmissions"`
	Submissions      int                   `json:"submissions"`
	IsOnline         bool                  `json:"isOnline"`
	PerProblem       []ProblemProgressView `json:"perProblem"`
}

type MyProblemView struct {
	ProblemProgressView
	LastResult     string            `json:"lastResult"`
	LastRuntimeMs  int64             `json:"lastRuntimeMs"`
	LastLanguage   string            `json:"lastLanguage"`
	CodeByLanguage map[string]string `json:"codeByLanguage"`
}

type MeView struct {
	UserID              string          `json:"userId"`
	SolvedCount         int             `json:"solvedCount"`
	Submissions         int             `json:"submissions"`
	AcceptedSubmissions int             `json:"acceptedSubmissions"`
	WrongSubmissions    int             `json:"wrongSubmissions"`
	PenaltyMs           int64           `json:"penaltyMs"`
	TotalRuntimeMs      int64           `json:"totalRuntimeMs"`
	Problems            []MyProblemView `json:"problems"`
}

type ArenaView struct {
	RoomID          string              `json:"roomId"`
	Status          RoomStatus          `json:"status"`
	StartedAt       int64               `json:"startedAt"`
	EndsAt          int64               `json:"endsAt"`
	FinishedAt      *int64              `json:"finishedAt"`
	FinishedReason  FinishReason        `json:"finishedReason,omitempty"`
	DurationSeconds int                 `json:"durationSeconds"`
	PenaltySeconds  int                 `json:"penaltySeconds"`
	TotalProblems   int                 `json:"totalProblems"`
	ProblemSet      ArenaProblemSetView `json:"problemSet"`
	Scoreboard      []ScoreboardEntry   `json:"scoreboard"`
	Me              *MeView             `json:"me"`
	CanViewCodes    bool                `json:"canViewCodes"`
	ServerTime      int64               `json:"serverTime"`
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func optionalMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func buildProblemSetView(ps *problemSet) *ProblemSetView {
	if ps == nil {
		return nil
	}
	summaries := make([]catalog.Summary, 0, len(ps.problems))
	for _, p := range ps.problems {
		summaries = append(summaries, p.Summary())
	}
	return &ProblemSetView{
		ProblemIDs:      append([]string(nil), ps.ids...),
		Problems:        summaries,
		DurationSeconds: ps.durationSeconds,
		PenaltySeconds:  ps.penaltySeconds,
		ConfiguredBy:    ps.configuredBy,
		ConfiguredAt:    millis(ps.configuredAt),
	}
}

func orderedMembers(r *Room) []*member {
	out := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sortMembers(out)
	return out
}

func buildLobbyView(r *Room, maxMembers int) LobbyView {
	members := orderedMembers(r)
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{
			UserID:   m.identity.UserID,
			Username: m.identity.Username,
			Role:     m.identity.Role,
			Ready:    m.ready,
		})
	}

	view := LobbyView{
		RoomID:      r.code,
		Status:      r.status,
		Members:     views,
		MemberCount: len(views),
		MaxMembers:  maxMembers,
		AllReady:    r.allReady(),
		CanStart:    r.canStart(),
		ProblemSet:  buildProblemSetView(r.problemSet),
	}
	if r.status == StatusCountdown {
		view.CountdownEndsAt = optionalMillis(r.countdownEndsAt)
	}
	return view
}

// buildArenaView returns nil when the room has no arena. The view carries no
// Me section; attach one per recipient with withMe.
func buildArenaView(r *Room, now time.Time, sampleLimit int) *ArenaView {
	if r.arena == nil || r.problemSet == nil {
		return nil
	}
	ps := r.problemSet
	problems := make([]ArenaProblemView, 0, len(ps.problems))
	for _, p := range ps.problems {
		problems = append(problems, ArenaProblemView{
			Id:          p.Id,
			Title:       p.Title,
			Difficulty:  p.Difficulty,
			Topics:      p.Topics,
			Tags:        p.Tags,
			Statement:   p.Statement,
			Constraints: p.Constraints,
			Examples:    p.Examples,
			StarterCode: p.StarterCode,
			SampleTests: p.SampleTests(sampleLimit),
		})
	}

	return &ArenaView{
		RoomID:          r.code,
		Status:          r.status,
		StartedAt:       millis(r.arena.startedAt),
		EndsAt:          millis(r.arena.endsAt),
		FinishedAt:      optionalMillis(r.arena.finishedAt),
		FinishedReason:  r.arena.finishedReason,
		DurationSeconds: ps.durationSeconds,
		PenaltySeconds:  ps.penaltySeconds,
		TotalProblems:   len(ps.ids),
		ProblemSet:      ArenaProblemSetView{ProblemIDs: append([]string(nil), ps.ids...), Problems: problems},
		Scoreboard:      buildScoreboard(r),
		CanViewCodes:    r.status == StatusFinished,
		ServerTime:      millis(now),
	}
}

func progressView(problemID string, ps *problemState) ProblemProgressView {
	view := ProblemProgressView{ProblemID: problemID}
	if ps == nil {
		return view
	}
	view.Solved = ps.solved()
	view.SolvedAt = optionalMillis(ps.solvedAt)
	view.Attempts = ps.attempts
	view.WrongAttempts = ps.wrongAttempts
	return view
}

func buildMeView(r *Room, userID string) *MeView {
	if r.arena == nil || r.problemSet == nil {
		return nil
	}
	me := &MeView{UserID: userID, Problems: []MyProblemView{}}
	p := r.arena.participants[userID]
	if p != nil {
		me.SolvedCount = p.solvedCount
		me.Submissions = p.submissions
		me.AcceptedSubmissions = p.acceptedSubmissions
		me.WrongSubmissions = p.wrongSubmissions
		me.PenaltyMs = p.penaltyMs
		me.TotalRuntimeMs = p.totalRuntimeMs
	}
	for _, id := range r.problemSet.ids {
		var ps *problemState
		if p != nil {
			ps = p.problems[id]
		}
		view := MyProblemView{ProblemProgressView: progressView(id, ps), CodeByLanguage: map[string]string{}}
		if ps != nil {
			view.LastResult = ps.lastResult
			view.LastRuntimeMs = ps.lastRuntimeMs
			view.LastLanguage = string(ps.lastLanguage)
			for lang, code := range ps.codeByLanguage {
				view.CodeByLanguage[string(lang)] = code
			}
		}
		me.Problems = append(me.Problems, view)
	}
	return me
}

func (v ArenaView) withMe(r *Room, userID string) ArenaView {
	v.Me = buildMeView(r, userID)
	return v
}

type CountdownView struct {
	RoomID          string `json:"roomId"`
	SecondsLeft     int    `json:"secondsLeft"`
	CountdownEndsAt int64  `json:"countdownEndsAt"`
}

type RoomStartedView struct {
	RoomID    string `json:"roomId"`
	StartedAt int64  `json:"startedAt"`
	EndsAt    int64  `json:"endsAt"`
}

type RoomJoinedView struct {
	RoomID string     `json:"roomId"`
	Status RoomStatus `json:"status"`
}

type RunResultView struct {
	RoomID    string `json:"roomId"`
	ProblemID string `json:"problemId"`
	sandbox.Result
}

type SubmissionView struct {
	RoomID      string         `json:"roomId"`
	ProblemID   string         `json:"problemId"`
	Accepted    bool           `json:"accepted"`
	NewlySolved bool           `json:"newlySolved"`
	Scored      bool           `json:"scored"`
	Execution   sandbox.Result `json:"execution"`
}

type PresenceView struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	ProblemID string `json:"problemId"`
	Language  string `json:"language"`
	UpdatedAt int64  `json:"updatedAt"`
}

type ParticipantCodeView struct {
	RoomID       string `json:"roomId"`
	TargetUserID string `json:"targetUserId"`
	Username     string `json:"username"`
	ProblemID    string `json:"problemId"`
	Language     string `json:"language"`
	Code         string `json:"code"`
	Solved       bool   `json:"solved"`
	Attempts     int    `json:"attempts"`
}

type CatalogView struct {
	RoomID             string            `json:"roomId,omitempty"`
	Problems           []catalog.Summary `json:"problems"`
	Facets             catalog.Facets    `json:"facets"`
	SelectedProblemSet *ProblemSetView   `json:"selectedProblemSet"`
}

type RoomProblemsSetView struct {
	RoomID     string          `json:"roomId"`
	ProblemSet *ProblemSetView `json:"problemSet"`
}
