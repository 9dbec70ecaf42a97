package modem

// Modulator runs once per sub-frame, filling Core.Ring.OutputBlock with the
// next slice of the continuous, phase-coherent, ramped transmit waveform
// (§4.3).
type Modulator struct{}

// Step implements the five-part contract from §4.3: block slicing, source
// advance, tone mixing, ramp envelope, and hand-off (hand-off itself is the
// caller's responsibility — it plays OutputBlock after Step returns).
func (Modulator) Step(c *Core) {
	p := c.Profile
	ring := c.Ring
	tx := c.Tx

	m := p.SubFrameSamples()
	s := int(c.nIterations % kSubFrames)
	lo, hi := s*m, (s+1)*m

	// 1. Block slicing.
	for i := lo; i < hi; i++ {
		ring.OutputBlockTmp[i] = 0
	}

	freshStart := tx.FrameID == 0 && tx.SendID == 0 && tx.SendingDataBuffer

	// 2. Source advance.
	if tx.SendingDataBuffer && !tx.WaitForNewFrame {
		advanceSource(c)
	}

	// 3. Tone mixing.
	nFreq := 0
	if tx.SendingData && !tx.WaitForNewFrame {
		nFreq = mixTones(c, lo, hi)
	}
	if nFreq > 0 {
		scale := float32(p.SendVolume / float64(nFreq))
		for i := lo; i < hi; i++ {
			ring.OutputBlockTmp[i] *= scale
		}
	}

	// 4. Ramp envelope.
	if freshStart {
		tx.Interp = 0
	}
	step := 1.0 / (float64(tx.NRampFrames) * float64(m))
	for i := lo; i < hi; i++ {
		switch {
		case tx.FrameID < tx.NRampFrames:
			tx.Interp += step
			if tx.Interp > 1 {
				tx.Interp = 1
			}
		case p.SubFramesPerTx > 0 && tx.FrameID >= p.SubFramesPerTx-tx.NRampFrames:
			tx.Interp -= step
			if tx.Interp < 0 {
				tx.Interp = 0
			}
		default:
			tx.Interp = 1
		}
		ring.OutputBlock[i] = float32(tx.Interp) * ring.OutputBlockTmp[i]
	}
}

// advanceSource implements §4.3 step 2: commit a finished transmission,
// begin the blend ramp, detect end of payload, or encode the next Tx's
// data bits.
func advanceSource(c *Core) {
	p := c.Profile
	tx := c.Tx
	payloadWidth := p.PayloadWidth()

	tx.FrameID++
	tx.CurTxSubFrameID++

	switch {
	case tx.CurTxSubFrameID >= p.SubFramesPerTx:
		tx.CurTxSubFrameID = 0
		tx.FrameID = 0
		tx.SendID += payloadWidth
		c.Metrics.TxCompleted()
	case tx.CurTxSubFrameID >= tx.NRampFrames:
		tx.NRampFrames = p.RampBlendSubFrames
	}

	if tx.SendID >= len(tx.SendData) {
		if !tx.Continuous {
			tx.SendingData = false
			tx.SendingDataBuffer = false
			tx.NRampFrames = p.RampEndSubFrames
			return
		}
		tx.SendID = 0
	}
	if !tx.Continuous && tx.SendData[tx.SendID] == 0 {
		tx.SendingData = false
		tx.SendingDataBuffer = false
		tx.NRampFrames = p.RampEndSubFrames
		return
	}

	n := p.DataBitsPerTx / 8
	payload := tx.SendData[tx.SendID : tx.SendID+payloadWidth]

	var encoded []byte
	if p.ECCEnabled() && c.Codec != nil {
		enc, err := c.Codec.Encode(payload)
		if err != nil {
			c.Logger.Warnf("modem: ECC encode failed, sending raw payload: %v", err)
			encoded = make([]byte, n)
			copy(encoded, payload)
		} else {
			encoded = enc
		}
	} else {
		encoded = make([]byte, n)
		copy(encoded, payload)
	}

	for j := 0; j < n; j++ {
		b := encoded[j]
		for bit := 0; bit < 8; bit++ {
			tx.DataBits[j*8+bit] = (b >> uint(bit)) & 1
		}
	}
}

// mixTones implements §4.3 step 3 and returns nFreq, the number of tones
// mixed (used to normalize the output amplitude).
func mixTones(c *Core, lo, hi int) int {
	p := c.Profile
	tx := c.Tx
	bank := c.Bank
	out := c.Ring.OutputBlockTmp

	nFreq := 0

	tx.Checksum = 1 // bit 0: "is sending" marker
	if p.EncodeIDParity {
		payloadWidth := p.PayloadWidth()
		txIndex := tx.DataID
		if payloadWidth > 0 {
			txIndex += tx.SendID / payloadWidth
		}
		if txIndex&1 != 0 {
			tx.Checksum |= 1 << 1
		}
	}

	for k := 0; k < p.DataBitsPerTx; k++ {
		var table []float32
		if tx.DataBits[k] != 0 {
			table = bank.DataOne[k]
		} else {
			table = bank.DataZero[k]
			tx.Checksum += 1 << uint((k%8)+2)
		}
		addTone(out, table, lo, hi)
		nFreq++
	}

	if p.ECCEnabled() {
		addTone(out, bank.CheckOne[0], lo, hi) // carrier marker, always "one"
		nFreq++
		if tx.Checksum&(1<<1) != 0 {
			addTone(out, bank.CheckOne[1], lo, hi)
		} else {
			addTone(out, bank.CheckZero[1], lo, hi)
		}
		nFreq++
	} else {
		checksum := tx.Checksum & ((1 << kMaxBitsPerChecksum) - 1)
		for k := 0; k < kMaxBitsPerChecksum; k++ {
			if k == 0 || checksum&(1<<uint(k)) != 0 {
				addTone(out, bank.CheckOne[k], lo, hi)
			} else {
				addTone(out, bank.CheckZero[k], lo, hi)
			}
			nFreq++
		}
	}

	return nFreq
}

func addTone(dst, table []float32, lo, hi int) {
	for i := lo; i < hi; i++ {
		dst[i] += table[i]
	}
}
