package trigger_test

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/store"
	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

var _ = ginkgo.Describe("the registry", func() {
	var registry *trigger.Registry

	ctx := context.Background()

	ginkgo.BeforeEach(func() {
		registry = trigger.NewRegistry()
		registry.Register("fake", newFake)
	})

	ginkgo.It("should load valid triggers and isolate broken ones", func() {
		triggers, report := registry.Load(ctx, trigger.Configurations{
			"fake": {
				"ok":       {"endpoint": "somewhere"},
				"invalid":  {},
				"initfail": {"endpoint": "somewhere", "failinit": "true"},
			},
			"unknown": {"x": {}},
		}, trigger.Dependencies{})

		gomega.Expect(triggers).To(gomega.HaveLen(1))
		gomega.Expect(triggers[0].Name()).To(gomega.Equal("ok"))
		gomega.Expect(report.Loaded).To(gomega.Equal([]string{"fake.ok"}))
		gomega.Expect(report.Failed).To(gomega.HaveLen(3))

		byName := map[string]error{}
		for _, failure := range report.Failed {
			byName[failure.Name] = failure.Err
		}

		gomega.Expect(byName["invalid"]).To(gomega.MatchError(trigger.ErrConfiguration))
		gomega.Expect(byName["initfail"]).To(gomega.MatchError(trigger.ErrInitialization))
		gomega.Expect(byName["x"]).To(gomega.MatchError(trigger.ErrConfiguration))
	})

	ginkgo.It("should mask secrets in the configuration view", func() {
		instance, err := registry.Create("fake", "ok", map[string]any{
			"endpoint": "somewhere",
			"secret":   "abc123",
		}, trigger.Dependencies{})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		masked := instance.MaskConfiguration()
		gomega.Expect(masked["secret"]).To(gomega.Equal(trigger.MaskedValue))
		gomega.Expect(masked["endpoint"]).To(gomega.Equal("somewhere"))
	})

	ginkgo.It("should list registered types", func() {
		registry.Register("another", newFake)
		gomega.Expect(registry.Types()).To(gomega.Equal([]string{"another", "fake"}))
	})
})

var _ = ginkgo.Describe("the dispatcher", func() {
	var (
		bus      *event.Bus
		memory   *store.Memory
		observer *recordingObserver
	)

	ctx := context.Background()

	load := func(raw map[string]map[string]any) []types.Trigger {
		registry := trigger.NewRegistry()
		registry.Register("fake", newFake)

		triggers, report := registry.Load(ctx, trigger.Configurations{"fake": raw}, trigger.Dependencies{})
		gomega.Expect(report.Failed).To(gomega.BeEmpty())

		return triggers
	}

	find := func(triggers []types.Trigger, name string) *fakeTrigger {
		for _, t := range triggers {
			if t.Name() == name {
				fake, ok := t.(*fakeTrigger)
				gomega.Expect(ok).To(gomega.BeTrue())

				return fake
			}
		}

		ginkgo.Fail("trigger not found: " + name)

		return nil
	}

	ginkgo.BeforeEach(func() {
		bus = event.New()
		memory = store.NewMemory(bus)
		observer = &recordingObserver{}
	})

	ginkgo.AfterEach(func() {
		bus.Close()
	})

	ginkgo.It("should deliver update events to every simple trigger", func() {
		triggers := load(map[string]map[string]any{
			"one":    {"endpoint": "a"},
			"two":    {"endpoint": "b"},
			"broken": {"endpoint": "c", "failsend": "true"},
			"batch":  {"endpoint": "d", "mode": "batch"},
		})

		dispatcher := trigger.NewDispatcher(bus, memory, triggers, observer)
		dispatcher.Start()

		memory.Upsert(ctx, types.Container{Watcher: "local", Name: "nginx", UpdateAvailable: true})
		bus.Wait()

		for _, name := range []string{"one", "two"} {
			singles, _ := find(triggers, name).delivered()
			gomega.Expect(singles).To(gomega.HaveLen(1))
		}

		batchSingles, _ := find(triggers, "batch").delivered()
		gomega.Expect(batchSingles).To(gomega.BeEmpty())
		gomega.Expect(observer.observations()).To(gomega.HaveLen(3))

		dispatcher.Stop()
		gomega.Expect(find(triggers, "one").closed).To(gomega.BeTrue())
	})

	ginkgo.It("should skip containers without update or below threshold", func() {
		triggers := load(map[string]map[string]any{
			"patch": {"endpoint": "a", "threshold": "patch"},
		})

		dispatcher := trigger.NewDispatcher(bus, memory, triggers, nil)
		dispatcher.Start()
		defer dispatcher.Stop()

		memory.Upsert(ctx, types.Container{Watcher: "local", Name: "idle"})
		memory.Upsert(ctx, types.Container{
			Watcher:         "local",
			Name:            "major",
			UpdateAvailable: true,
			UpdateKind:      types.UpdateKind{Kind: types.UpdateKindTag, SemverDiff: "major"},
		})
		bus.Wait()

		singles, _ := find(triggers, "patch").delivered()
		gomega.Expect(singles).To(gomega.BeEmpty())
	})

	ginkgo.It("should stop delivering after Stop", func() {
		triggers := load(map[string]map[string]any{"one": {"endpoint": "a"}})

		dispatcher := trigger.NewDispatcher(bus, memory, triggers, nil)
		dispatcher.Start()
		dispatcher.Stop()

		memory.Upsert(ctx, types.Container{Watcher: "local", Name: "nginx", UpdateAvailable: true})
		bus.Wait()

		singles, _ := find(triggers, "one").delivered()
		gomega.Expect(singles).To(gomega.BeEmpty())
	})

	ginkgo.Describe("batch delivery", func() {
		ginkgo.It("should send one notification per batch trigger", func() {
			triggers := load(map[string]map[string]any{
				"batch":  {"endpoint": "a", "mode": "batch"},
				"simple": {"endpoint": "b"},
			})

			memory.Upsert(ctx, types.Container{Watcher: "local", Name: "a", UpdateAvailable: true})
			memory.Upsert(ctx, types.Container{Watcher: "local", Name: "b", UpdateAvailable: true})
			memory.Upsert(ctx, types.Container{Watcher: "local", Name: "c"})
			bus.Wait()

			dispatcher := trigger.NewDispatcher(bus, memory, triggers, observer)
			gomega.Expect(dispatcher.HasBatchTriggers()).To(gomega.BeTrue())
			gomega.Expect(dispatcher.RunBatch(ctx)).To(gomega.Succeed())

			_, batches := find(triggers, "batch").delivered()
			gomega.Expect(batches).To(gomega.HaveLen(1))
			gomega.Expect(batches[0]).To(gomega.HaveLen(2))

			_, simpleBatches := find(triggers, "simple").delivered()
			gomega.Expect(simpleBatches).To(gomega.BeEmpty())
		})

		ginkgo.It("should report failures without blocking other triggers", func() {
			triggers := load(map[string]map[string]any{
				"broken": {"endpoint": "a", "mode": "batch", "failsend": "true"},
				"ok":     {"endpoint": "b", "mode": "batch"},
			})

			memory.Upsert(ctx, types.Container{Watcher: "local", Name: "a", UpdateAvailable: true})
			bus.Wait()

			dispatcher := trigger.NewDispatcher(bus, memory, triggers, observer)
			err := dispatcher.RunBatch(ctx)
			gomega.Expect(err).To(gomega.MatchError(errFake))

			_, batches := find(triggers, "ok").delivered()
			gomega.Expect(batches).To(gomega.HaveLen(1))
		})

		ginkgo.It("should skip triggers with nothing to deliver", func() {
			triggers := load(map[string]map[string]any{"batch": {"endpoint": "a", "mode": "batch"}})

			dispatcher := trigger.NewDispatcher(bus, memory, triggers, observer)
			gomega.Expect(dispatcher.RunBatch(ctx)).To(gomega.Succeed())
			gomega.Expect(observer.observations()).To(gomega.BeEmpty())
		})
	})
})
