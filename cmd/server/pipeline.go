package main

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/softee/managed/monitor"
)

// pipeline simulates a message-processing loop so the demo server has live
// statistics to expose. Messages are single-file, so the monitor's
// auto-duration RecordOutput is safe here.
type pipeline struct {
	monitor *monitor.MessagingMonitor
	stop    chan bool
}

func newPipeline(mon *monitor.MessagingMonitor) *pipeline {
	return &pipeline{
		monitor: mon,
		stop:    make(chan bool),
	}
}

func (p *pipeline) Start() {
	log.Println("Demo pipeline started")

	for {
		select {
		case <-p.stop:
			log.Println("Demo pipeline stopped")
			return
		default:
			p.processMessage()
			time.Sleep(time.Duration(200+rand.Intn(800)) * time.Millisecond)
		}
	}
}

func (p *pipeline) processMessage() {
	p.monitor.RecordInput()

	time.Sleep(time.Duration(5+rand.Intn(45)) * time.Millisecond)

	if rand.Intn(10) == 0 {
		p.monitor.RecordFailure(errors.New("simulated processing failure"))
		return
	}
	p.monitor.RecordOutput()
}

func (p *pipeline) Stop() {
	p.stop <- true
}
