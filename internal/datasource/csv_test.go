package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CSVTestSuite struct {
	suite.Suite
}

func TestCSVSuite(t *testing.T) {
	suite.Run(t, new(CSVTestSuite))
}

func (suite *CSVTestSuite) write(name, content string) string {
	path := filepath.Join(suite.T().TempDir(), name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *CSVTestSuite) TestLoadBars() {
	path := suite.write("aaa.csv", `code,exchange,date,open,high,low,close,volume
AAA,XTST,2024-01-02,10,11,9,10.5,1000
AAA,XTST,2024-01-03,10.5,12,10,11.5,1500
`)

	bars, err := LoadBarsCSV(path)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal("AAA", bars[0].Code)
	suite.Equal("XTST", bars[0].Exchange)
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	suite.InDelta(10.5, bars[0].Close, 1e-9)
	suite.Equal(int64(1500), bars[1].Volume)
}

func (suite *CSVTestSuite) TestLoadSortsByDate() {
	path := suite.write("unordered.csv", `code,exchange,date,open,high,low,close,volume
AAA,XTST,2024-01-05,1,1,1,1,1
AAA,XTST,2024-01-03,1,1,1,1,1
AAA,XTST,2024-01-04,1,1,1,1,1
`)

	bars, err := LoadBarsCSV(path)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.True(bars[0].Date.Before(bars[1].Date))
	suite.True(bars[1].Date.Before(bars[2].Date))
}

func (suite *CSVTestSuite) TestMissingFile() {
	_, err := LoadBarsCSV(filepath.Join(suite.T().TempDir(), "missing.csv"))
	suite.Error(err)
}

func (suite *CSVTestSuite) TestMalformedDate() {
	path := suite.write("bad.csv", `code,exchange,date,open,high,low,close,volume
AAA,XTST,01/02/2024,1,1,1,1,1
`)

	_, err := LoadBarsCSV(path)
	suite.Error(err)
}
