package server

import "math/rand/v2"

type cell struct {
	row int
	col int
}

// generateBoard returns a size x size grid holding a uniformly random
// permutation of 1..size*size.
func generateBoard(size int) [][]int {
	total := size * size
	numbers := make([]int, total)
	for i := range numbers {
		numbers[i] = i + 1
	}
	rand.Shuffle(total, func(i, j int) {
		numbers[i], numbers[j] = numbers[j], numbers[i]
	})
	board := make([][]int, size)
	for row := 0; row < size; row++ {
		board[row] = numbers[row*size : (row+1)*size]
	}
	return board
}

// winningLines returns the 2*size+2 lines of a board: every row, every
// column and the two full diagonals, in that order.
func winningLines(size int) [][]cell {
	lines := make([][]cell, 0, 2*size+2)
	for row := 0; row < size; row++ {
		line := make([]cell, size)
		for col := 0; col < size; col++ {
			line[col] = cell{row: row, col: col}
		}
		lines = append(lines, line)
	}
	for col := 0; col < size; col++ {
		line := make([]cell, size)
		for row := 0; row < size; row++ {
			line[row] = cell{row: row, col: col}
		}
		lines = append(lines, line)
	}
	down := make([]cell, size)
	up := make([]cell, size)
	for i := 0; i < size; i++ {
		down[i] = cell{row: i, col: i}
		up[i] = cell{row: i, col: size - 1 - i}
	}
	return append(lines, down, up)
}

func validateBoard(board [][]int, size int) bool {
	if len(board) != size {
		return false
	}
	seen := make(map[int]struct{}, size*size)
	for _, row := range board {
		if len(row) != size {
			return false
		}
		for _, value := range row {
			if value < 1 || value > size*size {
				return false
			}
			if _, dup := seen[value]; dup {
				return false
			}
			seen[value] = struct{}{}
		}
	}
	return len(seen) == size*size
}

// updateFinishedLines extends finished with the index of every line
// newly completed by calledNumbers. Finished lines are a monotone
// accumulator: indices already present are trusted and never re-checked
// or removed.
func updateFinishedLines(board [][]int, calledNumbers []int, finished []int, size int) []int {
	called := make(map[int]struct{}, len(calledNumbers))
	for _, number := range calledNumbers {
		called[number] = struct{}{}
	}
	done := make(map[int]struct{}, len(finished))
	for _, index := range finished {
		done[index] = struct{}{}
	}
	for index, line := range winningLines(size) {
		if _, ok := done[index]; ok {
			continue
		}
		complete := true
		for _, pos := range line {
			if _, ok := called[board[pos.row][pos.col]]; !ok {
				complete = false
				break
			}
		}
		if complete {
			finished = append(finished, index)
		}
	}
	return finished
}

// determineWinners recomputes the calling player's finished lines
// first; if they reach the threshold they win alone, without checking
// anyone else. Otherwise every other player is rechecked and all who
// qualify are returned as tied winners.
func determineWinners(round *Round, caller *RoundPlayer, size int) []*RoundPlayer {
	caller.FinishedLines = updateFinishedLines(caller.Board, round.CalledNumbers, caller.FinishedLines, size)
	if len(caller.FinishedLines) >= size {
		return []*RoundPlayer{caller}
	}
	var winners []*RoundPlayer
	for i := range round.Players {
		player := &round.Players[i]
		if player.ID == caller.ID {
			continue
		}
		player.FinishedLines = updateFinishedLines(player.Board, round.CalledNumbers, player.FinishedLines, size)
		if len(player.FinishedLines) >= size {
			winners = append(winners, player)
		}
	}
	return winners
}

// uncalledBoardNumbers lists the player's board values not yet called.
func uncalledBoardNumbers(player *RoundPlayer, round *Round) []int {
	called := make(map[int]struct{}, len(round.CalledNumbers))
	for _, number := range round.CalledNumbers {
		called[number] = struct{}{}
	}
	var unmarked []int
	for _, row := range player.Board {
		for _, value := range row {
			if _, ok := called[value]; !ok {
				unmarked = append(unmarked, value)
			}
		}
	}
	return unmarked
}
