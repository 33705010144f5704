package game

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const abuseCloseReason = "too-many-abusive-requests"

// Dispatcher turns client frames into service calls. Every frame passes the
// session's abuse guard before it is decoded.
type Dispatcher struct {
	service  *Service
	validate *validator.Validate
}

func NewDispatcher(service *Service) *Dispatcher {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Dispatcher{service: service, validate: v}
}

// Dispatch handles one frame. Executions run on their own goroutine bound to
// ctx so the read loop keeps serving the connection meanwhile.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		sess.emitError(ErrInvalidPayload)
		return
	}

	verdict := sess.guard.Check(env.Type, d.service.clock.Now())
	if !verdict.Allowed {
		if verdict.Disconnect {
			d.service.logger.Warn().Str("conn", sess.id).Str("user", sess.identity.UserID).Str("action", env.Type).Msg("abusive connection closed")
			sess.emit(EventSocketError, socketErrorData{Code: ErrRateLimited.Code, Message: abuseDisconnectMessage})
			sess.out.Close(abuseCloseReason)
			return
		}
		sess.emitError(ErrRateLimited.withMessage("%s", verdict.Message))
		return
	}

	if err := d.route(ctx, sess, env); err != nil {
		sess.emitError(err)
	}
}

func (d *Dispatcher) route(ctx context.Context, sess *Session, env Envelope) error {
	s := d.service
	switch env.Type {
	case ActionCreateRoom:
		_, err := s.CreateRoom(sess)
		return err
	case ActionJoinRoom:
		var in JoinInput
		if err := d.decodeJoin(env.Data, &in); err != nil {
			return err
		}
		return s.JoinRoom(sess, in)
	case ActionLeaveRoom:
		var in RoomInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.LeaveRoom(sess, in)
	case ActionToggleReady:
		var in ReadyInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.ToggleReady(sess, in)
	case ActionSetRoomProblems:
		var in ProblemsInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.SetProblems(sess, in)
	case ActionStartRoom:
		var in RoomInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.StartRoom(sess, in)
	case ActionArenaCodeUpdate:
		var in CodeInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.UpdateDraft(sess, in)
	case ActionRunCode, ActionSubmitSolution:
		var in CodeInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		run := s.RunCode
		if env.Type == ActionSubmitSolution {
			run = s.SubmitSolution
		}
		go func() {
			if err := run(ctx, sess, in); err != nil {
				sess.emitError(err)
			}
		}()
		return nil
	case ActionRequestParticipantCode:
		var in ParticipantCodeInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.RequestParticipantCode(sess, in)
	case ActionGetArenaState:
		var in RoomInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.GetArenaState(sess, in)
	case ActionGetProblemCatalog:
		var in CatalogInput
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return s.GetProblemCatalog(sess, in)
	}
	return ErrUnknownAction
}

// decode accepts a missing or null payload as the zero value.
func (d *Dispatcher) decode(data json.RawMessage, out any) error {
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, out); err != nil {
			return ErrInvalidPayload
		}
	}
	if err := d.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ErrInvalidPayload.withMessage("Invalid payload: %s", verrs[0].Field())
		}
		return ErrInvalidPayload
	}
	return nil
}

// decodeJoin also accepts the room code as a bare JSON string.
func (d *Dispatcher) decodeJoin(data json.RawMessage, out *JoinInput) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		out.RoomID = code
		data = nil
	}
	return d.decode(data, out)
}
