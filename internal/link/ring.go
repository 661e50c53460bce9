package link

import "fmt"

// ringGeometry sizes a TPACKET_V3 ring. Frames hold snapLen plus the frame
// header, aligned to 16 bytes. A block is the LCM of the page and frame
// sizes; past 4 MB it is cut to the whole frames that fit, rounded up to a
// page. The ring gets as many blocks as fit in ringMB megabytes, at least
// one.
func ringGeometry(ringMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const (
		tpacketAlignment = 16
		tpacketHdrLen    = 52
		maxBlockSize     = 4 << 20
	)

	if ringMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ring size must be positive, got %d MB", ringMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap_len must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// too coarse: fit whole frames into the cap, then round to pages
		blockSize = alignUp((maxBlockSize/frameSize)*frameSize, pageSize)
	}

	numBlocks = (ringMB << 20) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, a int) int { return (n + a - 1) / a * a }

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
