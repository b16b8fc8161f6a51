// Package view runs one viewer's window onto a campaign's battles: a single
// goroutine owns the local battle list, refreshes it on triggers, derives what
// the viewer may do, and applies action results. Everything reaches the
// goroutine as a typed message, so there is no shared-memory access to guard.
package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/jpreston42/warband-campaign/internal/battle"
	"github.com/jpreston42/warband-campaign/internal/notify"
	"github.com/jpreston42/warband-campaign/internal/session"
)

// Trigger names why a refresh was requested.
type Trigger string

const (
	TriggerMount   Trigger = "mount"
	TriggerFocus   Trigger = "focus"
	TriggerOnline  Trigger = "online"
	TriggerVisible Trigger = "visible"
	TriggerNotify  Trigger = "notify"
)

type Msg interface{ isViewMsg() }

// Refresh asks for a re-fetch of the battle list. Requests arriving while a
// fetch is already in flight are coalesced into it.
type Refresh struct{ Trigger Trigger }

// AcceptInvite accepts the viewer's pending invite on the resumable battle.
type AcceptInvite struct{}

// RequestCancel opens the creator's cancel-confirmation step.
type RequestCancel struct{}

// ConfirmCancel issues the cancellation after the viewer confirmed.
type ConfirmCancel struct{}

// DismissCancel closes the confirmation step without canceling.
type DismissCancel struct{}

// GetSnapshot asks for the current derived state.
type GetSnapshot struct{ Reply chan Snapshot }

type Shutdown struct{}

func (Refresh) isViewMsg()       {}
func (AcceptInvite) isViewMsg()  {}
func (RequestCancel) isViewMsg() {}
func (ConfirmCancel) isViewMsg() {}
func (DismissCancel) isViewMsg() {}
func (GetSnapshot) isViewMsg()   {}
func (Shutdown) isViewMsg()      {}

type refreshDone struct {
	battles []battle.Battle
	err     error
	mutSeq  int // mutation sequence observed when the fetch started
}

type acceptDone struct {
	battle battle.Battle
	err    error
}

type cancelDone struct {
	battle battle.Battle
	err    error
}

func (refreshDone) isViewMsg() {}
func (acceptDone) isViewMsg()  {}
func (cancelDone) isViewMsg()  {}

// Phase is the lifecycle of one user action. Modelling it as one value keeps
// illegal combinations (submitting twice, confirming while submitting)
// unrepresentable.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConfirming
	PhaseSubmitting
	PhaseErrored
)

type ActionState struct {
	Phase Phase
	Err   string // set only in PhaseErrored
}

// Snapshot is the derived state handed to the presentation layer.
type Snapshot struct {
	Version   int
	Loaded    bool
	LoadErr   string // initial-load failure only; background failures keep old data
	Battles   []battle.Battle
	Resumable *battle.Battle
	Route     battle.Route
	Caps      battle.Caps
	Accept    ActionState
	Cancel    ActionState
}

type Config struct {
	Repo       session.Repository
	Fetcher    *Fetcher // optional; views sharing a campaign should share one
	Bus        *notify.Bus
	CampaignID string
	ViewerID   string
	Log        *zap.Logger
}

type View struct {
	inbox      chan Msg
	repo       session.Repository
	fetch      *Fetcher
	bus        *notify.Bus
	sub        *notify.Subscription
	campaignID string
	viewerID   string
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	battles     []battle.Battle
	loaded      bool
	loadErr     string
	version     int
	refreshing  bool
	pending     bool // the in-flight fetch is stale; re-fetch once it resolves
	inflightSeq int  // mutSeq at the moment the in-flight fetch started
	mutSeq      int  // bumped on every applied mutation response
	accept      ActionState
	cancelDlg   ActionState
}

func New(parent context.Context, cfg Config) *View {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Fetcher == nil {
		cfg.Fetcher = NewFetcher(cfg.Repo)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	v := &View{
		inbox:      make(chan Msg, 64),
		repo:       cfg.Repo,
		fetch:      cfg.Fetcher,
		bus:        cfg.Bus,
		campaignID: cfg.CampaignID,
		viewerID:   cfg.ViewerID,
		log:        cfg.Log.Named("view").With(zap.String("campaign", cfg.CampaignID)),
		ctx:        ctx,
		cancel:     cancel,
	}

	if v.bus != nil {
		v.sub = v.bus.Subscribe(notify.TopicInviteSent, notify.TopicPreBattleOpened, notify.TopicStatusUpdated)
		go v.forwardSignals()
	}

	go v.loop()
	v.inbox <- Refresh{Trigger: TriggerMount}
	return v
}

// Inbox is where triggers and user actions are sent.
func (v *View) Inbox() chan<- Msg { return v.inbox }

func (v *View) forwardSignals() {
	for {
		select {
		case <-v.ctx.Done():
			return
		case <-v.sub.C:
			select {
			case v.inbox <- Refresh{Trigger: TriggerNotify}:
			case <-v.ctx.Done():
				return
			}
		}
	}
}

func (v *View) loop() {
	for {
		select {
		case <-v.ctx.Done():
			v.teardown()
			return

		case m := <-v.inbox:
			switch msg := m.(type) {
			case Refresh:
				v.startRefresh(msg.Trigger)

			case refreshDone:
				v.applyRefresh(msg)

			case AcceptInvite:
				v.startAccept()

			case acceptDone:
				v.applyAccept(msg)

			case RequestCancel:
				v.requestCancel()

			case ConfirmCancel:
				v.confirmCancel()

			case cancelDone:
				v.applyCancel(msg)

			case DismissCancel:
				if v.cancelDlg.Phase == PhaseConfirming || v.cancelDlg.Phase == PhaseErrored {
					v.cancelDlg = ActionState{}
				}

			case GetSnapshot:
				msg.Reply <- v.snapshot()

			case Shutdown:
				v.teardown()
				return
			}
		}
	}
}

func (v *View) teardown() {
	if v.bus != nil {
		v.bus.Unsubscribe(v.sub)
	}
	v.cancel()
}

func (v *View) startRefresh(trigger Trigger) {
	if v.refreshing {
		// Coalesce: the in-flight fetch serves this trigger too, unless a
		// mutation has been applied since it started, in which case its data
		// is already stale and a follow-up fetch must run.
		if v.inflightSeq < v.mutSeq {
			v.pending = true
		}
		return
	}
	v.refreshing = true
	v.inflightSeq = v.mutSeq

	seq := v.mutSeq
	go func() {
		battles, err := v.fetch.List(v.ctx, v.campaignID)
		// A view that was torn down must not apply a late result.
		select {
		case v.inbox <- refreshDone{battles: battles, err: err, mutSeq: seq}:
		case <-v.ctx.Done():
		}
	}()

	v.log.Debug("refresh started", zap.String("trigger", string(trigger)))
}

func (v *View) applyRefresh(msg refreshDone) {
	v.refreshing = false

	switch {
	case msg.err != nil:
		if !v.loaded {
			v.loadErr = msg.err.Error()
		} else {
			// Stale-but-present beats a blank screen.
			v.log.Warn("background refresh failed", zap.Error(msg.err))
		}

	case msg.mutSeq < v.mutSeq:
		// The fetch started before a mutation response was applied; its data
		// predates authoritative state we already hold and must not overwrite
		// it. Re-fetch instead.
		v.pending = true
		v.log.Debug("discarded refresh fetched before a local mutation")

	default:
		v.battles = msg.battles
		v.loaded = true
		v.loadErr = ""
		v.version++

		if _, extra, _ := battle.PickResumable(v.battles); extra > 0 {
			v.log.Warn("store returned multiple open battles for campaign",
				zap.Int("extra", extra))
		}
	}

	if v.pending {
		v.pending = false
		v.startRefresh(TriggerNotify)
	}
}

func (v *View) startAccept() {
	if v.accept.Phase == PhaseSubmitting {
		return
	}

	b, _, ok := battle.PickResumable(v.battles)
	if !ok {
		v.accept = ActionState{Phase: PhaseErrored, Err: "no open battle to join"}
		return
	}
	// Advisory guard; the server re-checks and a conflict is handled below.
	if err := battle.CanJoin(b, v.viewerID); err != nil {
		v.accept = ActionState{Phase: PhaseErrored, Err: err.Error()}
		return
	}

	v.accept = ActionState{Phase: PhaseSubmitting}
	battleID := b.ID
	go func() {
		updated, err := v.repo.JoinBattle(v.ctx, v.campaignID, battleID)
		select {
		case v.inbox <- acceptDone{battle: updated, err: err}:
		case <-v.ctx.Done():
		}
	}()
}

func (v *View) applyAccept(msg acceptDone) {
	if msg.err != nil {
		// Local state untouched; the next refresh corrects the display.
		v.accept = ActionState{Phase: PhaseErrored, Err: msg.err.Error()}
		return
	}

	v.accept = ActionState{}
	v.mutSeq++
	v.replaceByID(msg.battle)
	if v.bus != nil {
		v.bus.Publish(notify.TopicStatusUpdated)
	}
}

func (v *View) requestCancel() {
	if v.cancelDlg.Phase == PhaseSubmitting {
		return
	}

	b, _, ok := battle.PickResumable(v.battles)
	if !ok {
		v.cancelDlg = ActionState{Phase: PhaseErrored, Err: "no open battle to cancel"}
		return
	}
	if err := battle.CanCancel(b, v.viewerID); err != nil {
		v.cancelDlg = ActionState{Phase: PhaseErrored, Err: err.Error()}
		return
	}

	// Cancellation is irreversible and hits every participant, so it takes an
	// explicit confirmation before any network call.
	v.cancelDlg = ActionState{Phase: PhaseConfirming}
}

func (v *View) confirmCancel() {
	if v.cancelDlg.Phase != PhaseConfirming && v.cancelDlg.Phase != PhaseErrored {
		return
	}

	b, _, ok := battle.PickResumable(v.battles)
	if !ok {
		v.cancelDlg = ActionState{Phase: PhaseErrored, Err: "no open battle to cancel"}
		return
	}
	if err := battle.CanCancel(b, v.viewerID); err != nil {
		v.cancelDlg = ActionState{Phase: PhaseErrored, Err: err.Error()}
		return
	}

	v.cancelDlg = ActionState{Phase: PhaseSubmitting}
	battleID := b.ID
	go func() {
		updated, err := v.repo.CancelBattleAsCreator(v.ctx, v.campaignID, battleID)
		select {
		case v.inbox <- cancelDone{battle: updated, err: err}:
		case <-v.ctx.Done():
		}
	}()
}

func (v *View) applyCancel(msg cancelDone) {
	if msg.err != nil {
		// Keep the confirmation open so the viewer can retry or dismiss.
		v.cancelDlg = ActionState{Phase: PhaseErrored, Err: msg.err.Error()}
		return
	}

	v.cancelDlg = ActionState{}
	v.mutSeq++
	v.replaceByID(msg.battle)
	if v.bus != nil {
		v.bus.Publish(notify.TopicStatusUpdated)
	}
}

// replaceByID applies a mutation response: a total replace of the matching
// record, never a field merge. Responses for battles the list has not seen
// yet are prepended, matching the store's newest-first ordering.
func (v *View) replaceByID(b battle.Battle) {
	for i := range v.battles {
		if v.battles[i].ID == b.ID {
			v.battles[i] = b
			v.version++
			return
		}
	}
	v.battles = append([]battle.Battle{b}, v.battles...)
	v.version++
}

func (v *View) snapshot() Snapshot {
	snap := Snapshot{
		Version: v.version,
		Loaded:  v.loaded,
		LoadErr: v.loadErr,
		Battles: append([]battle.Battle(nil), v.battles...),
		Route:   battle.RoutePreBattle,
		Accept:  v.accept,
		Cancel:  v.cancelDlg,
	}

	if b, _, ok := battle.PickResumable(v.battles); ok {
		resumable := b
		snap.Resumable = &resumable
		snap.Route = battle.RouteFor(b.Status)
		snap.Caps = battle.Capabilities(b, v.viewerID)
	}
	return snap
}
