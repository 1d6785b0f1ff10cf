package alsasink

// thread is the module's I/O loop. It owns the device between Load and Close.
func (m *Module) thread() {
	defer close(m.done)

	log := m.log.Named("io")
	log.Debug("Thread starting up")

	m.poll.InstallQueue(m.inq)
	fds := m.item.Fds()

	for {
		if m.sink.ThreadState().IsOpened() && m.sink.RewindRequested() {
			m.sink.ProcessRewind(0)
		}

		if applied, err := m.volume.apply(m.session); err != nil {
			log.Warnw("Volume change failed", "error", err)
		} else if applied {
			log.Debugw("Volume applied", "raw", m.volume.lastApplied)
		}

		var events Events
		if m.sink.ThreadState().IsOpened() {
			events |= EventWritable
		}
		m.session.PollDescriptors(fds, events)

		running, err := m.poll.Run()
		if err != nil {
			log.Errorw("Poll failed", "error", err)
			m.fail()
			return
		}
		if !running {
			break
		}

		revents := m.session.Revents(fds)
		if revents&EventHangup != 0 {
			log.Errorw("Device hangup", "device", m.session.Name())
			m.fail()
			return
		}

		if m.sink.ThreadState().IsOpened() && revents&EventWritable != 0 {
			if err := m.pipeline.fill(m.sink, m.session); err != nil {
				log.Errorw("Write failed", "error", err)
				m.fail()
				return
			}
		}
	}

	log.Debug("Thread shutting down")
}

// fail asks the core to unload the module and parks until the shutdown message arrives,
// servicing control messages meanwhile.
func (m *Module) fail() {
	if err := m.core.queue.Post(m.core, CoreMessageUnloadModule, m, 0); err != nil {
		m.log.Errorw("Cannot request unload", "error", err)
	}

	m.inq.WaitFor(MessageShutdown)
	m.log.Debug("Thread shut down after failure")
}
