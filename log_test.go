package unixfs

import "testing"

func TestLogCommitInstallsLoggedBlock(t *testing.T) {
	const logStart, logSize, dataBlock = 2, MaxOpBlocks, 20
	dev := NewMemDisk(32)
	cache := newBufCache(dev, 8, nil)
	lg := newLogState(RootDev, logStart, logSize, cache, dev, nil)
	if err := lg.recover(); err != nil {
		t.Fatalf("recover: %v", err)
	}

	lg.BeginOp()
	b, err := cache.Bread(RootDev, dataBlock)
	if err != nil {
		t.Fatalf("Bread: %v", err)
	}
	b.data[0] = 0x42
	lg.LogWrite(b)
	cache.Brelse(b)
	lg.EndOp()

	got, err := dev.Read(dataBlock)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != 0x42 {
		t.Fatalf("installed byte = %#x, want 0x42", got[0])
	}
}

func TestLogWriteAbsorbsRepeatedWritesInOneTransaction(t *testing.T) {
	const logStart, logSize, dataBlock = 2, MaxOpBlocks, 20
	dev := NewMemDisk(32)
	cache := newBufCache(dev, 8, nil)
	lg := newLogState(RootDev, logStart, logSize, cache, dev, nil)
	if err := lg.recover(); err != nil {
		t.Fatalf("recover: %v", err)
	}

	lg.BeginOp()
	for i := 0; i < 3; i++ {
		b, err := cache.Bread(RootDev, dataBlock)
		if err != nil {
			t.Fatalf("Bread: %v", err)
		}
		b.data[0] = byte(i + 1)
		lg.LogWrite(b)
		cache.Brelse(b)
	}
	if lg.header.N != 1 {
		t.Fatalf("header.N = %d, want 1 (repeated writes to the same block should absorb)", lg.header.N)
	}
	lg.EndOp()
}

func TestLogRecoverReplaysCommittedTransactionAfterCrash(t *testing.T) {
	// Build the on-disk state a crash right after the commit point (step 2
	// of commit()) would leave behind by hand: the log header says one
	// block is pending, its data sits in the log slot, but the home
	// location (dataBlock) was never touched -- as if the process died
	// between writing the header and installing the block.
	const logStart, logSize, dataBlock = 2, 4, 10
	dev := NewMemDisk(32)

	var logBlk Block
	logBlk[0] = 0x7
	if err := dev.Write(logStart+1, &logBlk); err != nil {
		t.Fatalf("seed log slot: %v", err)
	}

	hdr := logHeader{N: 1}
	hdr.Block[0] = dataBlock
	var hdrBlk Block
	encodeLogHeader(&hdr, &hdrBlk)
	if err := dev.Write(logStart, &hdrBlk); err != nil {
		t.Fatalf("seed log header: %v", err)
	}

	cache := newBufCache(dev, 8, nil)
	lg := newLogState(RootDev, logStart, logSize, cache, dev, nil)
	if err := lg.recover(); err != nil {
		t.Fatalf("recover: %v", err)
	}

	got, err := dev.Read(dataBlock)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != 0x7 {
		t.Fatalf("recovered byte = %#x, want 0x7", got[0])
	}

	hdrAfter, err := dev.Read(logStart)
	if err != nil {
		t.Fatalf("Read header: %v", err)
	}
	if decodeLogHeader(hdrAfter).N != 0 {
		t.Fatalf("header not erased after recovery")
	}
}
