package orch

import (
	"context"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
)

// SyncRoster applies a membership snapshot from outside the signaling channel.
func (o *Orchestrator) SyncRoster(ctx context.Context, members domain.RosterSnapshot) error {
	return o.loop.Do(ctx, func() error {
		o.syncRoster(members)
		return nil
	})
}

// syncRoster makes the registry's key set equal the snapshot's peers minus self.
func (o *Orchestrator) syncRoster(members domain.RosterSnapshot) {
	o.roster.Set(members)
	o.observer.OnRosterChanged(members.Clone())

	want := members.Peers(o.LocalID())
	keep := make(map[domain.RemoteID]struct{}, len(want))
	for _, id := range want {
		keep[id] = struct{}{}
	}

	for _, id := range o.registry.Keys() {
		if _, ok := keep[id]; ok {
			continue
		}
		o.logger.Info().Str("remote_id", string(id)).Msg("peer left")
		o.remove(id)
		o.limiter.Forget(id)
	}

	for _, id := range want {
		if e, ok := o.registry.Get(id); ok && !e.Closed() {
			continue
		}
		o.initiate(id)
	}
}

func (o *Orchestrator) JoinRoom(ctx context.Context, room domain.RoomID) error {
	return o.loop.Do(ctx, func() error {
		o.joinRoom(room)
		return nil
	})
}

func (o *Orchestrator) joinRoom(room domain.RoomID) {
	if cur := o.roster.Room(); cur != "" && cur != room {
		o.leave(true)
	}
	o.roster.SetRoom(room)
	o.send(core.EventJoinRoom, core.RoomPayload{RoomID: room})
	o.logger.Info().Str("room", string(room)).Msg("joined room")
}

func (o *Orchestrator) LeaveRoom(ctx context.Context) error {
	return o.loop.Do(ctx, func() error {
		o.leave(true)
		return nil
	})
}

// leave closes every connection and releases the local media.
func (o *Orchestrator) leave(announce bool) {
	room := o.roster.Room()
	if announce && room != "" {
		o.send(core.EventLeaveRoom, core.RoomPayload{RoomID: room})
	}
	o.closeAll()
	o.roster.Clear()
	o.logger.Info().Str("room", string(room)).Msg("left room")
}

func (o *Orchestrator) endMeeting() {
	o.logger.Info().Msg("meeting ended by host")
	o.leave(false)
}

func (o *Orchestrator) closeAll() {
	for _, e := range o.registry.Entries() {
		if e.HasRemoteStream() {
			o.observer.OnRemoteStreamRemoved(e.RemoteID)
		}
	}
	o.registry.CloseAll()
}

// Reconnect rebuilds the link to one peer on user request.
func (o *Orchestrator) Reconnect(ctx context.Context, id domain.RemoteID) error {
	return o.loop.Do(ctx, func() error { return o.reconnect(id) })
}

func (o *Orchestrator) reconnect(id domain.RemoteID) error {
	_, inRoster := o.roster.Snapshot().Find(id)
	_, inRegistry := o.registry.Get(id)
	if id == o.LocalID() || (!inRoster && !inRegistry) {
		return domain.NewNegotiationError("reconnect", id, domain.ErrUnknownPeer)
	}
	if !o.limiter.Allow(id) {
		return domain.NewNegotiationError("reconnect", id, domain.ErrRateLimited)
	}
	o.logger.Info().Str("remote_id", string(id)).Msg("manual reconnect")
	o.remove(id)
	o.initiate(id)
	return nil
}

// ReconnectAll tears every link down, re-acquires media and re-syncs with
// the last roster. It is the way out of a stalled negotiation.
func (o *Orchestrator) ReconnectAll(ctx context.Context) error {
	return o.loop.Do(ctx, func() error { return o.reconnectAll(ctx) })
}

func (o *Orchestrator) reconnectAll(ctx context.Context) error {
	o.logger.Info().Int("peers", o.registry.Len()).Msg("reconnecting all")
	o.closeAll()
	if err := o.acquire(ctx); err != nil {
		return err
	}
	o.syncRoster(o.roster.Snapshot())
	return nil
}

// Identify tells the membership service which user this session belongs to.
func (o *Orchestrator) Identify(ctx context.Context, user domain.UserID, displayName, avatarURL string) error {
	m, err := domain.NewRosterMember(o.LocalID(), displayName)
	if err != nil {
		return err
	}
	m.UserID = user
	m.AvatarURL = avatarURL
	return o.loop.Do(ctx, func() error {
		ms := o.media.State().Media()
		m.IsVideoOn, m.IsAudioOn = ms.IsVideo, ms.IsAudio
		o.send(core.EventSetUserSocket, m)
		o.logger.Info().Str("user_id", string(user)).Str("name", m.DisplayName).Msg("identified")
		return nil
	})
}

// Logout detaches the user from this session.
func (o *Orchestrator) Logout(ctx context.Context) error {
	return o.loop.Do(ctx, func() error {
		o.send(core.EventUnsetUserSocket, nil)
		return nil
	})
}
