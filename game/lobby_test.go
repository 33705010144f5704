package game

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	t.Run("Only Admins Create Rooms", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		user := f.connect(bob)
		_, err := f.svc.CreateRoom(user.sess)
		assert.ErrorIs(t, err, ErrNotAdmin)
		assert.Zero(t, f.svc.Registry().Len())
	})

	t.Run("Creator Is Seated Not Ready", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin := f.connect(alice)
		code, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)

		assert.Regexp(t, `^[A-HJ-NP-Z2-9]{7}$`, code)
		assert.Equal(t, code, admin.sess.RoomCode())
		assert.Equal(t, []string{EventRoomCreated, EventLobbyUpdate}, admin.rec.events())

		view := lastEvent[LobbyView](t, admin.rec, EventRoomCreated)
		assert.Equal(t, code, view.RoomID)
		assert.Equal(t, StatusLobby, view.Status)
		require.Len(t, view.Members, 1)
		assert.Equal(t, MemberView{UserID: alice.UserID, Username: "alice", Role: domain.RoleAdmin}, view.Members[0])
		assert.False(t, view.CanStart)
		assert.Nil(t, view.ProblemSet)

		f.inspect(t, code, func(r *Room) {
			assert.True(t, r.isParticipant(alice.UserID))
		})
	})

	t.Run("Creating Again Leaves The Previous Lobby", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin := f.connect(alice)
		first, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)
		second, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		_, ok := f.svc.Registry().Get(first)
		assert.False(t, ok, "empty lobby must be deleted")
		assert.Equal(t, second, admin.sess.RoomCode())
	})
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		roomID  func(code string) string
		wantErr error
	}{
		{name: "malformed code", roomID: func(string) string { return "abc" }, wantErr: ErrInvalidRoomCode},
		{name: "ambiguous alphabet", roomID: func(string) string { return "ABCDEF0" }, wantErr: ErrInvalidRoomCode},
		{name: "unknown room", roomID: func(code string) string {
			if code == "ZZZZZZZ" {
				return "YYYYYYY"
			}
			return "ZZZZZZZ"
		}, wantErr: ErrRoomNotFound},
		{name: "lowercase code", roomID: func(code string) string { return " " + strings.ToLower(code) + " " }},
		{name: "exact code", roomID: func(code string) string { return code }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			admin, user := f.connect(alice), f.connect(bob)
			code, err := f.svc.CreateRoom(admin.sess)
			require.NoError(t, err)

			err = f.svc.JoinRoom(user.sess, JoinInput{RoomID: tc.roomID(code)})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, user.sess.RoomCode())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, code, user.sess.RoomCode())
			joined := lastEvent[RoomJoinedView](t, user.rec, EventRoomJoined)
			assert.Equal(t, RoomJoinedView{RoomID: code, Status: StatusLobby}, joined)
			view := lastEvent[LobbyView](t, admin.rec, EventLobbyUpdate)
			assert.Equal(t, 2, view.MemberCount)
		})
	}

	t.Run("Full Room Rejects Newcomers", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.svc.opts.MaxMembers = 2
		admin, user, late := f.connect(alice), f.connect(bob), f.connect(carol)
		code, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)
		require.NoError(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: code}))

		assert.ErrorIs(t, f.svc.JoinRoom(late.sess, JoinInput{RoomID: code}), ErrRoomFull)
		assert.NoError(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: code}), "seated member rejoining is not counted twice")

		refresh := f.connect(bob)
		assert.NoError(t, f.svc.JoinRoom(refresh.sess, JoinInput{RoomID: code}), "reconnect replaces the stale slot")
	})

	t.Run("Reconnect Evicts Stale Slot And Keeps Ready", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, old := f.connect(alice), f.connect(bob)
		code := f.lobby(t, admin, []*client{old}, "two-sum")
		require.NoError(t, f.svc.ToggleReady(old.sess, ReadyInput{Ready: true}))

		fresh := f.connect(bob)
		require.NoError(t, f.svc.JoinRoom(fresh.sess, JoinInput{RoomID: code}))

		assert.Empty(t, old.sess.RoomCode())
		assert.Equal(t, 1, old.rec.count(EventRoomLeft))
		f.inspect(t, code, func(r *Room) {
			assert.Len(t, r.members, 2)
			m, ok := r.members[fresh.sess.ID()]
			require.True(t, ok)
			assert.True(t, m.ready)
			_, ok = r.members[old.sess.ID()]
			assert.False(t, ok)
		})
	})

	t.Run("Joining Another Room Leaves The Current One", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin1, admin2, user := f.connect(alice), f.connect(alice), f.connect(bob)
		admin2.sess.identity.UserID = "u-alice-2"
		first, err := f.svc.CreateRoom(admin1.sess)
		require.NoError(t, err)
		second, err := f.svc.CreateRoom(admin2.sess)
		require.NoError(t, err)

		require.NoError(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: first}))
		require.NoError(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: second}))

		assert.Equal(t, second, user.sess.RoomCode())
		f.inspect(t, first, func(r *Room) {
			assert.Len(t, r.members, 1)
			assert.False(t, r.isParticipant(bob.UserID))
		})
	})

	t.Run("Failed Join Keeps The Current Seat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		code, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)
		require.NoError(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: code}))

		missing := "ZZZZZZZ"
		if code == missing {
			missing = "YYYYYYY"
		}
		assert.ErrorIs(t, f.svc.JoinRoom(user.sess, JoinInput{RoomID: missing}), ErrRoomNotFound)
		assert.Equal(t, code, user.sess.RoomCode())
	})

	t.Run("Strangers Cannot Join A Running Match", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user, stranger := f.connect(alice), f.connect(bob), f.connect(carol)
		code := f.arena(t, admin, []*client{user}, "two-sum")

		assert.ErrorIs(t, f.svc.JoinRoom(stranger.sess, JoinInput{RoomID: code}), ErrRoomUnavailable)
	})

	t.Run("Participants Resume A Running Match", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		code := f.arena(t, admin, []*client{user}, "two-sum")
		require.NoError(t, f.svc.UpdateDraft(user.sess, CodeInput{ProblemID: "two-sum", Language: "python", Code: "x = 1"}))
		f.svc.Disconnect(user.sess)

		back := f.connect(bob)
		require.NoError(t, f.svc.JoinRoom(back.sess, JoinInput{RoomID: code}))

		view := lastEvent[ArenaView](t, back.rec, EventRoomResume)
		assert.Equal(t, StatusStarted, view.Status)
		require.NotNil(t, view.Me)
		require.Len(t, view.Me.Problems, 1)
		assert.Equal(t, "x = 1", view.Me.Problems[0].CodeByLanguage["python"])
	})
}

func TestLeaveRoom(t *testing.T) {
	t.Parallel()

	t.Run("Last Member Leaving A Lobby Deletes It", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin := f.connect(alice)
		code, err := f.svc.CreateRoom(admin.sess)
		require.NoError(t, err)

		require.NoError(t, f.svc.LeaveRoom(admin.sess, RoomInput{}))
		_, ok := f.svc.Registry().Get(code)
		assert.False(t, ok)
		assert.Empty(t, admin.sess.RoomCode())
		assert.Equal(t, 1, admin.rec.count(EventRoomLeft))
	})

	t.Run("Leaving A Lobby Drops The Participant", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		code := f.lobby(t, admin, []*client{user}, "two-sum")

		require.NoError(t, f.svc.LeaveRoom(user.sess, RoomInput{RoomID: code}))
		f.inspect(t, code, func(r *Room) {
			assert.False(t, r.isParticipant(bob.UserID))
			_, ok := r.participantProfiles[bob.UserID]
			assert.False(t, ok)
		})
		view := lastEvent[LobbyView](t, admin.rec, EventLobbyUpdate)
		assert.Equal(t, 1, view.MemberCount)
	})

	t.Run("Empty Arena Is Kept And Stamped", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin := f.connect(alice)
		code := f.arena(t, admin, nil, "two-sum")
		f.clock.Advance(10 * time.Second)

		f.svc.Disconnect(admin.sess)
		f.inspect(t, code, func(r *Room) {
			assert.Equal(t, epoch.Add(15*time.Second), r.abandonedAt)
			assert.True(t, r.isParticipant(alice.UserID))
		})
	})

	t.Run("Leaving Without A Seat Fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		user := f.connect(bob)
		assert.ErrorIs(t, f.svc.LeaveRoom(user.sess, RoomInput{}), ErrNotMember)
		f.svc.Disconnect(user.sess)
	})
}

func TestToggleReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	admin, user, outsider := f.connect(alice), f.connect(bob), f.connect(carol)
	code := f.lobby(t, admin, []*client{user}, "two-sum")

	assert.ErrorIs(t, f.svc.ToggleReady(outsider.sess, ReadyInput{RoomID: code, Ready: true}), ErrNotMember)
	assert.ErrorIs(t, f.svc.ToggleReady(outsider.sess, ReadyInput{Ready: true}), ErrNotMember)

	require.NoError(t, f.svc.ToggleReady(admin.sess, ReadyInput{Ready: true}))
	view := lastEvent[LobbyView](t, user.rec, EventLobbyUpdate)
	assert.False(t, view.AllReady)
	assert.False(t, view.CanStart)

	require.NoError(t, f.svc.ToggleReady(user.sess, ReadyInput{Ready: true}))
	view = lastEvent[LobbyView](t, user.rec, EventLobbyUpdate)
	assert.True(t, view.AllReady)
	assert.True(t, view.CanStart)

	require.NoError(t, f.svc.ToggleReady(user.sess, ReadyInput{Ready: false}))
	view = lastEvent[LobbyView](t, admin.rec, EventLobbyUpdate)
	assert.False(t, view.CanStart)
}

func TestSetProblems(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   ProblemsInput
		wantErr error
		wantIDs []string
	}{
		{
			name:    "single problem",
			input:   ProblemsInput{ProblemIDs: []string{"contains-duplicate"}, DurationSeconds: 120, PenaltySeconds: 20},
			wantIDs: []string{"contains-duplicate"},
		},
		{
			name:    "duplicates and case are folded",
			input:   ProblemsInput{ProblemIDs: []string{"Two-Sum", "two-sum", " valid-anagram "}, DurationSeconds: 600},
			wantIDs: []string{"two-sum", "valid-anagram"},
		},
		{
			name:    "nothing selected",
			input:   ProblemsInput{ProblemIDs: []string{" "}, DurationSeconds: 600},
			wantErr: ErrNoProblemsSelected,
		},
		{
			name: "too many problems",
			input: ProblemsInput{
				ProblemIDs:      []string{"two-sum", "valid-anagram", "contains-duplicate", "group-anagrams", "valid-parentheses", "top-k-frequent-elements"},
				DurationSeconds: 600,
			},
			wantErr: ErrTooManyProblems,
		},
		{
			name:    "unknown problem",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum", "nope"}, DurationSeconds: 600},
			wantErr: ErrUnknownProblem,
		},
		{
			name:    "duration too short",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum"}, DurationSeconds: 119},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "duration too long",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum"}, DurationSeconds: 7201},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "negative penalty",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum"}, DurationSeconds: 600, PenaltySeconds: -1},
			wantErr: ErrInvalidPenalty,
		},
		{
			name:    "penalty too large",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum"}, DurationSeconds: 600, PenaltySeconds: 301},
			wantErr: ErrInvalidPenalty,
		},
		{
			name:    "bounds are inclusive",
			input:   ProblemsInput{ProblemIDs: []string{"two-sum"}, DurationSeconds: 7200, PenaltySeconds: 300},
			wantIDs: []string{"two-sum"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			admin := f.connect(alice)
			code, err := f.svc.CreateRoom(admin.sess)
			require.NoError(t, err)

			err = f.svc.SetProblems(admin.sess, tc.input)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				f.inspect(t, code, func(r *Room) { assert.Nil(t, r.problemSet) })
				return
			}
			require.NoError(t, err)
			got := lastEvent[RoomProblemsSetView](t, admin.rec, EventRoomProblemsSet)
			require.NotNil(t, got.ProblemSet)
			assert.Equal(t, tc.wantIDs, got.ProblemSet.ProblemIDs)
			assert.Equal(t, tc.input.DurationSeconds, got.ProblemSet.DurationSeconds)
			assert.Equal(t, alice.UserID, got.ProblemSet.ConfiguredBy)
		})
	}

	t.Run("Members Cannot Configure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		f.lobby(t, admin, []*client{user}, "two-sum")
		err := f.svc.SetProblems(user.sess, ProblemsInput{ProblemIDs: []string{"valid-anagram"}, DurationSeconds: 600})
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("Readiness Resets On Reconfiguration", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		code := f.lobby(t, admin, []*client{user}, "two-sum")
		require.NoError(t, f.svc.ToggleReady(admin.sess, ReadyInput{Ready: true}))
		require.NoError(t, f.svc.ToggleReady(user.sess, ReadyInput{Ready: true}))
		f.inspect(t, code, func(r *Room) { require.True(t, r.canStart()) })

		require.NoError(t, f.svc.SetProblems(admin.sess, ProblemsInput{ProblemIDs: []string{"valid-anagram"}, DurationSeconds: 600}))
		f.inspect(t, code, func(r *Room) {
			assert.False(t, r.canStart())
			for _, m := range r.members {
				assert.False(t, m.ready)
			}
		})
		view := lastEvent[LobbyView](t, user.rec, EventLobbyUpdate)
		assert.False(t, view.CanStart)
		assert.Equal(t, []string{"valid-anagram"}, view.ProblemSet.ProblemIDs)
	})

	t.Run("Running Arena Cannot Be Reconfigured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin := f.connect(alice)
		f.arena(t, admin, nil, "two-sum")
		err := f.svc.SetProblems(admin.sess, ProblemsInput{ProblemIDs: []string{"valid-anagram"}, DurationSeconds: 600})
		assert.ErrorIs(t, err, ErrRoomNotInLobby)
	})

	t.Run("Finished Room Resets For A Rematch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		admin, user := f.connect(alice), f.connect(bob)
		code := f.arena(t, admin, []*client{user}, "two-sum")
		f.clock.Advance(2 * time.Minute)
		f.inspect(t, code, func(r *Room) { require.Equal(t, StatusFinished, r.status) })
		f.svc.Disconnect(user.sess)

		require.NoError(t, f.svc.SetProblems(admin.sess, ProblemsInput{ProblemIDs: []string{"valid-anagram"}, DurationSeconds: 300}))
		f.inspect(t, code, func(r *Room) {
			assert.Equal(t, StatusLobby, r.status)
			assert.Nil(t, r.arena)
			assert.True(t, r.isParticipant(alice.UserID))
			assert.False(t, r.isParticipant(bob.UserID))
			assert.Zero(t, f.svc.timers.pending(code))
		})
	})
}

func TestCanStartRequiresAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	admin, user := f.connect(alice), f.connect(bob)
	code := f.lobby(t, admin, []*client{user}, "two-sum")
	require.NoError(t, f.svc.ToggleReady(user.sess, ReadyInput{Ready: true}))
	require.NoError(t, f.svc.LeaveRoom(admin.sess, RoomInput{}))

	f.inspect(t, code, func(r *Room) {
		assert.True(t, r.allReady())
		assert.False(t, r.canStart(), fmt.Sprintf("no admin among %d members", len(r.members)))
	})
}
