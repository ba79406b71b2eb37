package controllers

import (
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// User is one websocket connection subscribed to routing progress.
type User struct {
	io   sync.Mutex
	conn net.Conn

	id  uint
	hub *Hub

	mu  sync.Mutex
	job string
}

func (u *User) readRequest() (*subscribeRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	if u.hub.writeTimeout > 0 {
		if err := u.conn.SetReadDeadline(time.Now().Add(u.hub.writeTimeout)); err != nil {
			return nil, err
		}
	}
	// pings are answered inside ReadClientData, hence the write lock
	data, op, err := wsutil.ReadClientData(u.conn)
	if err != nil {
		return nil, err
	}
	if op != ws.OpText {
		return nil, nil
	}

	req := &subscribeRequest{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Receive reads one client message. a valid message replaces the job filter of the connection.
func (u *User) Receive() error {
	req, err := u.readRequest()
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}

	if err := validateStruct(req); err != nil {
		return u.write(errorEnvelope(http.StatusBadRequest, err.Error()))
	}

	u.mu.Lock()
	u.job = req.JobID
	u.mu.Unlock()
	return u.write(envelope{"data": map[string]string{"subscribed": req.JobID}})
}

func (u *User) wants(job string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.job == "" || u.job == job
}

func (u *User) write(x any) error {
	payload, err := json.Marshal(x)
	if err != nil {
		return err
	}
	return u.writeRaw(payload)
}

func (u *User) writeRaw(payload []byte) error {
	u.io.Lock()
	defer u.io.Unlock()

	if u.hub.writeTimeout > 0 {
		if err := u.conn.SetWriteDeadline(time.Now().Add(u.hub.writeTimeout)); err != nil {
			return err
		}
	}
	return wsutil.WriteServerMessage(u.conn, ws.OpText, payload)
}

// Hub fans routing progress out to every subscribed websocket connection.
type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	writeTimeout time.Duration
	log          *zap.Logger
}

func NewHub(log *zap.Logger, writeTimeout time.Duration) *Hub {
	return &Hub{
		ns:           make(map[uint]*User),
		us:           make([]*User, 0),
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// Register adds an upgraded connection. new users receive the events of every job.
func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

// Remove drops the user and closes its connection.
func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	if _, ok := h.ns[user.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.ns, user.id)

	// us stays sorted by id
	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})
	h.us = append(h.us[:i:i], h.us[i+1:]...)
	h.mu.Unlock()

	user.conn.Close()
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := append([]*User(nil), h.us...)
	h.mu.RUnlock()
	for _, user := range users {
		h.Remove(user)
	}
}

func (h *Hub) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

// Broadcast sends ev to every user subscribed to its job. users that cannot be written are removed.
func (h *Hub) Broadcast(ev progressEvent) {
	payload, err := json.Marshal(envelope{"data": ev})
	if err != nil {
		h.log.Error("marshal progress event", zap.Error(err))
		return
	}

	h.mu.RLock()
	users := append([]*User(nil), h.us...)
	h.mu.RUnlock()

	for _, user := range users {
		if !user.wants(ev.JobID) {
			continue
		}
		if err := user.writeRaw(payload); err != nil {
			h.log.Info("dropping websocket user", zap.Uint("user", user.id), zap.Error(err))
			h.Remove(user)
		}
	}
}

// Observer reports the progress of job to the hub. round events are throttled, the last round of a region always goes out.
func (h *Hub) Observer(job string) observer.Observer {
	return &jobObserver{
		hub:     h,
		job:     job,
		limiter: rate.NewLimiter(rate.Limit(pkg.PROGRESS_EVENTS_PER_SECOND), 1),
	}
}

type jobObserver struct {
	hub     *Hub
	job     string
	limiter *rate.Limiter
}

func (o *jobObserver) OnPartition(region string, arcs, special int) {
	o.hub.Broadcast(progressEvent{JobID: o.job, Event: "partition", Region: region, Arcs: arcs, Special: special})
}

func (o *jobObserver) OnRegionStart(region string, arcs int) {
	o.hub.Broadcast(progressEvent{JobID: o.job, Event: "region_start", Region: region, Arcs: arcs})
}

func (o *jobObserver) OnRoundComplete(region string, round, overused, rerouted int) {
	if overused > 0 && !o.limiter.Allow() {
		return
	}
	o.hub.Broadcast(progressEvent{JobID: o.job, Event: "round", Region: region, Round: round,
		Overused: overused, Rerouted: rerouted})
}

func (o *jobObserver) OnRegionDone(region string, rounds int, duration time.Duration, err error) {
	ev := progressEvent{JobID: o.job, Event: "region_done", Region: region, Rounds: rounds,
		DurationMs: milliseconds(duration)}
	if err != nil {
		ev.Error = err.Error()
	}
	o.hub.Broadcast(ev)
}

// JobDone tells subscribers that job finished, err is nil on success.
func (h *Hub) JobDone(job string, duration time.Duration, err error) {
	ev := progressEvent{JobID: job, Event: "job_done", DurationMs: milliseconds(duration)}
	if err != nil {
		ev.Error = err.Error()
	}
	h.Broadcast(ev)
}
