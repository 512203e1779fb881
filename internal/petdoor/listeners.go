package petdoor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Listener subscribes to reply categories. Set only the callbacks you
// need. Name identifies the subscriber within each category: registering
// the same name again replaces the earlier callback in place.
type Listener struct {
	Name string

	OnDoorStatus          func(DoorStatus)
	OnSettings            func(Settings)
	OnNotifications       func(Notifications)
	OnStats               func(Stats)
	OnHardwareInfo        func(HardwareInfo)
	OnBattery             func(Battery)
	OnTimezone            func(Timezone)
	OnHoldTime            func(HoldTime)
	OnTriggerVoltage      func(TriggerVoltage)
	OnSleepTriggerVoltage func(SleepTriggerVoltage)
	OnScheduleList        func(ScheduleList)
	OnSchedule            func(ScheduleEntry)
	OnCommandLockout      func(CommandLockout)
	OnAutoRetract         func(AutoRetract)

	// OnSensors maps a sensor, or SensorAll, to its callback.
	OnSensors map[Sensor]func(bool)
}

// Subscription is the handle returned by AddListener.
type Subscription struct {
	id   uuid.UUID
	name string
}

// Name returns the subscriber name the handle was registered with.
func (s Subscription) Name() string { return s.name }

// Valid reports whether the handle came from AddListener.
func (s Subscription) Valid() bool { return s.id != uuid.Nil }

// Handlers receive connection lifecycle events.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()

	// OnPing receives the round-trip time of each answered PING.
	OnPing func(latency time.Duration)
}

// slot is one named callback in a category.
type slot[T any] struct {
	name string
	id   uuid.UUID
	fn   T
}

// upsert replaces the slot with the same name, or appends.
func upsert[T any](list []slot[T], s slot[T]) []slot[T] {
	for i := range list {
		if list[i].name == s.name {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}

// removeID drops every slot owned by id.
func removeID[T any](list []slot[T], id uuid.UUID) ([]slot[T], bool) {
	out := list[:0]
	removed := false
	for _, s := range list {
		if s.id == id {
			removed = true
			continue
		}
		out = append(out, s)
	}
	return out, removed
}

func removeFrom[T any](list *[]slot[T], id uuid.UUID) bool {
	var removed bool
	*list, removed = removeID(*list, id)
	return removed
}

func snapshot[T any](list []slot[T]) []slot[T] {
	if len(list) == 0 {
		return nil
	}
	out := make([]slot[T], len(list))
	copy(out, list)
	return out
}

// registry holds one client's listeners. Every field belongs to the
// instance; nothing is shared between clients.
type registry struct {
	mu sync.RWMutex

	doorStatus          []slot[func(DoorStatus)]
	settings            []slot[func(Settings)]
	notifications       []slot[func(Notifications)]
	stats               []slot[func(Stats)]
	hardware            []slot[func(HardwareInfo)]
	battery             []slot[func(Battery)]
	timezone            []slot[func(Timezone)]
	holdTime            []slot[func(HoldTime)]
	triggerVoltage      []slot[func(TriggerVoltage)]
	sleepTriggerVoltage []slot[func(SleepTriggerVoltage)]
	scheduleList        []slot[func(ScheduleList)]
	schedule            []slot[func(ScheduleEntry)]
	lockout             []slot[func(CommandLockout)]
	autoRetract         []slot[func(AutoRetract)]
	sensors             map[Sensor][]slot[func(bool)]

	handlers []slot[Handlers]
}

func newRegistry() *registry {
	return &registry{sensors: make(map[Sensor][]slot[func(bool)])}
}

func (r *registry) add(l Listener) Subscription {
	sub := Subscription{id: uuid.New(), name: l.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l.OnDoorStatus != nil {
		r.doorStatus = upsert(r.doorStatus, slot[func(DoorStatus)]{l.Name, sub.id, l.OnDoorStatus})
	}
	if l.OnSettings != nil {
		r.settings = upsert(r.settings, slot[func(Settings)]{l.Name, sub.id, l.OnSettings})
	}
	if l.OnNotifications != nil {
		r.notifications = upsert(r.notifications, slot[func(Notifications)]{l.Name, sub.id, l.OnNotifications})
	}
	if l.OnStats != nil {
		r.stats = upsert(r.stats, slot[func(Stats)]{l.Name, sub.id, l.OnStats})
	}
	if l.OnHardwareInfo != nil {
		r.hardware = upsert(r.hardware, slot[func(HardwareInfo)]{l.Name, sub.id, l.OnHardwareInfo})
	}
	if l.OnBattery != nil {
		r.battery = upsert(r.battery, slot[func(Battery)]{l.Name, sub.id, l.OnBattery})
	}
	if l.OnTimezone != nil {
		r.timezone = upsert(r.timezone, slot[func(Timezone)]{l.Name, sub.id, l.OnTimezone})
	}
	if l.OnHoldTime != nil {
		r.holdTime = upsert(r.holdTime, slot[func(HoldTime)]{l.Name, sub.id, l.OnHoldTime})
	}
	if l.OnTriggerVoltage != nil {
		r.triggerVoltage = upsert(r.triggerVoltage, slot[func(TriggerVoltage)]{l.Name, sub.id, l.OnTriggerVoltage})
	}
	if l.OnSleepTriggerVoltage != nil {
		r.sleepTriggerVoltage = upsert(r.sleepTriggerVoltage, slot[func(SleepTriggerVoltage)]{l.Name, sub.id, l.OnSleepTriggerVoltage})
	}
	if l.OnScheduleList != nil {
		r.scheduleList = upsert(r.scheduleList, slot[func(ScheduleList)]{l.Name, sub.id, l.OnScheduleList})
	}
	if l.OnSchedule != nil {
		r.schedule = upsert(r.schedule, slot[func(ScheduleEntry)]{l.Name, sub.id, l.OnSchedule})
	}
	if l.OnCommandLockout != nil {
		r.lockout = upsert(r.lockout, slot[func(CommandLockout)]{l.Name, sub.id, l.OnCommandLockout})
	}
	if l.OnAutoRetract != nil {
		r.autoRetract = upsert(r.autoRetract, slot[func(AutoRetract)]{l.Name, sub.id, l.OnAutoRetract})
	}

	if fn, ok := l.OnSensors[SensorAll]; ok && fn != nil {
		for _, s := range AllSensors {
			r.sensors[s] = upsert(r.sensors[s], slot[func(bool)]{l.Name, sub.id, fn})
		}
	} else {
		for _, s := range AllSensors {
			if fn := l.OnSensors[s]; fn != nil {
				r.sensors[s] = upsert(r.sensors[s], slot[func(bool)]{l.Name, sub.id, fn})
			}
		}
	}

	return sub
}

// remove drops exactly the callbacks registered through sub. A callback
// that a later registration of the same name replaced is owned by the
// later handle.
func (r *registry) remove(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	found := removeFrom(&r.doorStatus, sub.id)
	found = removeFrom(&r.settings, sub.id) || found
	found = removeFrom(&r.notifications, sub.id) || found
	found = removeFrom(&r.stats, sub.id) || found
	found = removeFrom(&r.hardware, sub.id) || found
	found = removeFrom(&r.battery, sub.id) || found
	found = removeFrom(&r.timezone, sub.id) || found
	found = removeFrom(&r.holdTime, sub.id) || found
	found = removeFrom(&r.triggerVoltage, sub.id) || found
	found = removeFrom(&r.sleepTriggerVoltage, sub.id) || found
	found = removeFrom(&r.scheduleList, sub.id) || found
	found = removeFrom(&r.schedule, sub.id) || found
	found = removeFrom(&r.lockout, sub.id) || found
	found = removeFrom(&r.autoRetract, sub.id) || found
	for s := range r.sensors {
		list := r.sensors[s]
		found = removeFrom(&list, sub.id) || found
		r.sensors[s] = list
	}

	return found
}

func (r *registry) addHandlers(name string, h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = upsert(r.handlers, slot[Handlers]{name: name, fn: h})
}

func (r *registry) removeHandlers(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.handlers {
		if s.name == name {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) handlerSnapshot() []slot[Handlers] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.handlers)
}

// fanout delivers a payload to every listener of its category. call wraps
// each invocation so the client can recover panics.
func (r *registry) fanout(p Payload, call func(name string, fn func())) {
	switch v := p.(type) {
	case DoorStatus:
		each(r, &r.doorStatus, v, call)
	case Settings:
		each(r, &r.settings, v, call)
		r.settingsToSensors(v, call)
	case Sensors:
		for _, s := range AllSensors {
			if on, ok := v.Values[s]; ok {
				r.sensor(s, on, call)
			}
		}
	case Power:
		r.sensor(SensorPower, v.On, call)
	case TimersEnabled:
		r.sensor(SensorAuto, v.Enabled, call)
	case Notifications:
		each(r, &r.notifications, v, call)
	case Stats:
		each(r, &r.stats, v, call)
	case HardwareInfo:
		each(r, &r.hardware, v, call)
	case Battery:
		each(r, &r.battery, v, call)
	case Timezone:
		each(r, &r.timezone, v, call)
	case HoldTime:
		each(r, &r.holdTime, v, call)
	case TriggerVoltage:
		each(r, &r.triggerVoltage, v, call)
	case SleepTriggerVoltage:
		each(r, &r.sleepTriggerVoltage, v, call)
	case ScheduleList:
		each(r, &r.scheduleList, v, call)
	case ScheduleEntry:
		each(r, &r.schedule, v, call)
	case CommandLockout:
		each(r, &r.lockout, v, call)
	case AutoRetract:
		each(r, &r.autoRetract, v, call)
	}
}

func each[T any](r *registry, list *[]slot[func(T)], v T, call func(string, func())) {
	r.mu.RLock()
	subs := snapshot(*list)
	r.mu.RUnlock()
	for _, s := range subs {
		fn := s.fn
		call(s.name, func() { fn(v) })
	}
}

func (r *registry) sensor(sensor Sensor, on bool, call func(string, func())) {
	r.mu.RLock()
	subs := snapshot(r.sensors[sensor])
	r.mu.RUnlock()
	for _, s := range subs {
		fn := s.fn
		call(s.name, func() { fn(on) })
	}
}

// settingsToSensors feeds a settings snapshot to sensor listeners, except
// subscribers that already received it through a settings callback.
func (r *registry) settingsToSensors(v Settings, call func(string, func())) {
	r.mu.RLock()
	skip := make(map[string]bool, len(r.settings))
	for _, s := range r.settings {
		skip[s.name] = true
	}
	perSensor := make(map[Sensor][]slot[func(bool)], len(AllSensors))
	for _, s := range AllSensors {
		perSensor[s] = snapshot(r.sensors[s])
	}
	r.mu.RUnlock()

	for _, sensor := range AllSensors {
		on, ok := v.Sensors[sensor]
		if !ok {
			continue
		}
		for _, s := range perSensor[sensor] {
			if skip[s.name] {
				continue
			}
			fn := s.fn
			call(s.name, func() { fn(on) })
		}
	}
}
