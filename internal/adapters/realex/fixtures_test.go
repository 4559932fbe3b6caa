package realex

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/realex-gateway/internal/domain/models"
	"github.com/kevin07696/realex-gateway/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

const fixedTimestamp = "20090824160201"

var fixedClock = timeutil.FixedClock(time.Date(2009, 8, 24, 16, 2, 1, 0, time.UTC))

func testCredentials() Credentials {
	return Credentials{
		MerchantID: "your_merchant_id",
		Account:    "your_account",
		Secret:     "your_secret",
	}
}

func testCard() models.CreditCard {
	return models.CreditCard{
		Number:    "4263971921001307",
		Month:     8,
		Year:      2008,
		FirstName: "Longbob",
		LastName:  "Longsen",
		Brand:     models.BrandVisa,
	}
}

func amexCard() models.CreditCard {
	card := testCard()
	card.Number = "374101000000608"
	card.Brand = models.BrandAmericanExpress
	return card
}

func testAddress() *models.Address {
	return &models.Address{
		Name:     "Longbob Longsen",
		Address1: "123 Fake Street",
		City:     "Belfast",
		State:    "Antrim",
		Country:  "Northern Ireland",
		Zip:      "BT2 8XX",
	}
}

func testPayer() *models.Payer {
	return &models.Payer{ID: "1", FirstName: "John", LastName: "Smith"}
}

// canonicalXML re-encodes a document without the declaration and insignificant whitespace,
// so <a/> and <a></a> compare equal
func canonicalXML(t *testing.T, doc string) string {
	t.Helper()

	dec := xml.NewDecoder(strings.NewReader(doc))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch tk := tok.(type) {
		case xml.ProcInst, xml.Comment, xml.Directive:
			continue
		case xml.CharData:
			trimmed := bytes.TrimSpace(tk)
			if len(trimmed) == 0 {
				continue
			}
			tok = xml.CharData(trimmed)
		}
		require.NoError(t, enc.EncodeToken(xml.CopyToken(tok)))
	}
	require.NoError(t, enc.Flush())
	return buf.String()
}

func assertEqualXML(t *testing.T, expected string, req *Request) {
	t.Helper()
	body, err := req.Marshal()
	require.NoError(t, err)
	require.Equal(t, canonicalXML(t, expected), canonicalXML(t, string(body)))
}

const successfulPurchaseResponse = `<response timestamp='20010427043422'>
  <merchantid>your merchant id</merchantid>
  <account>account to use</account>
  <orderid>order id from request</orderid>
  <authcode>authcode received</authcode>
  <result>00</result>
  <message>[ test system ] message returned from system</message>
  <pasref> realex payments reference</pasref>
  <cvnresult>M</cvnresult>
  <batchid>batch id for this transaction (if any)</batchid>
  <cardissuer>
    <bank>Issuing Bank Name</bank>
    <country>Issuing Bank Country</country>
    <countrycode>Issuing Bank Country Code</countrycode>
    <region>Issuing Bank Region</region>
  </cardissuer>
  <tss>
    <result>89</result>
    <check id="1000">9</check>
    <check id="1001">9</check>
  </tss>
  <sha1hash>7384ae67....ac7d7d</sha1hash>
  <md5hash>34e7....a77d</md5hash>
</response>`

const unsuccessfulPurchaseResponse = `<response timestamp='20010427043422'>
  <merchantid>your merchant id</merchantid>
  <account>account to use</account>
  <orderid>order id from request</orderid>
  <authcode>authcode received</authcode>
  <result>101</result>
  <message>[ test system ] message returned from system</message>
  <pasref> realex payments reference</pasref>
  <cvnresult>M</cvnresult>
  <batchid>batch id for this transaction (if any)</batchid>
  <sha1hash>7384ae67....ac7d7d</sha1hash>
</response>`

const avsPurchaseResponse = `<response timestamp="20010427043422">
  <result>00</result>
  <message>AUTH CODE: 12345</message>
  <pasref>14631546336115597</pasref>
  <cvnresult>M</cvnresult>
  <avspostcoderesponse>M</avspostcoderesponse>
  <avsaddressresponse>N</avsaddressresponse>
</response>`

const enrolledResponse = `<response timestamp="20030625171810">
  <merchantid>merchantid</merchantid>
  <account>internet</account>
  <orderid>orderid</orderid>
  <authcode></authcode>
  <result>00</result>
  <message>[ test system ] Enrolled</message>
  <pasref></pasref>
  <timetaken>3</timetaken>
  <authtimetaken>0</authtimetaken>
  <pareq>eJxVUttygkAM/ZUdnitZFlBw4na02tE6bR0vD+0bLlHpFFDASv++u6i1
  zVNycju54H2dfrIvKsokz3qWY3OLUabyOMm2PWu1fGwF1r3E5a4gGi5IH</pareq>
  <url>http://www.acs.com</url>
  <enrolled>Y</enrolled>
  <xid>7ba3b1e6e6b542489b73243aac050777</xid>
  <sha1hash>9eda1f99191d4e994627ddf38550b9f47981f614</sha1hash>
</response>`

const notEnrolledResponse = `<response timestamp="20030625171810">
  <merchantid>merchantid</merchantid>
  <account>internet</account>
  <orderid>orderid</orderid>
  <authcode></authcode>
  <result>110</result>
  <message>[ test system ] Not Enrolled</message>
  <pasref></pasref>
  <pareq>eJxVUttygkAM</pareq>
  <url></url>
  <enrolled>N</enrolled>
  <xid>e9dafe706f7142469c45d4877aaf5984</xid>
  <sha1hash>9eda1f99191d4e994627ddf38550b9f47981f614</sha1hash>
</response>`

const enrollmentUnavailableResponse = `<response timestamp="20030625171810">
  <merchantid>merchantid</merchantid>
  <account>internet</account>
  <orderid>orderid</orderid>
  <result>110</result>
  <message>[ test system ] Not Enrolled</message>
  <pareq>eJxVUttygkAM</pareq>
  <url></url>
  <enrolled>U</enrolled>
  <xid>e9dafe706f7142469c45d4877aaf5984</xid>
</response>`

const enrollmentUnknownFlagResponse = `<response timestamp="20030625171810">
  <result>110</result>
  <message>[ test system ] Something new</message>
  <enrolled>Q</enrolled>
</response>`

const enrollmentErrorResponse = `<response timestamp="20030625171810">
  <result>502</result>
  <message>Invalid card scheme directory response</message>
</response>`

const verifiedSignatureResponse = `<response timestamp="20030625171823">
  <merchantid>merchantid</merchantid>
  <account />
  <orderid>orderid</orderid>
  <result>00</result>
  <message>[ test system ] Authentication Successful</message>
  <threedsecure>
    <status>Y</status>
    <eci />
    <xid />
    <cavv />
    <algorithm />
  </threedsecure>
  <sha1hash>e5a7745da5dc32d234c3f52860132c482107e9ac</sha1hash>
</response>`

const verifiedSignatureWithECIResponse = `<response timestamp="20030625171823">
  <result>00</result>
  <message>[ test system ] Authentication Successful</message>
  <threedsecure>
    <status>Y</status>
    <eci>5</eci>
    <xid>crqAeMwkEL9r4POdxpByWJ1/wYg=</xid>
    <cavv>AAABASY3QHgwUVdEBTdAAAAAAAA=</cavv>
    <algorithm>2</algorithm>
  </threedsecure>
</response>`

const rejectedSignatureResponse = `<response timestamp="20030625171823">
  <merchantid>merchantid</merchantid>
  <account />
  <orderid>orderid</orderid>
  <result>00</result>
  <message>[ test system ] message returned from system</message>
  <threedsecure>
    <status>N</status>
    <eci />
    <xid />
    <cavv />
    <algorithm />
  </threedsecure>
  <sha1hash>e5a7745da5dc32d234c3f52860132c482107e9ac</sha1hash>
</response>`

const unknownStatusSignatureResponse = `<response timestamp="20030625171823">
  <result>00</result>
  <message>[ test system ] message returned from system</message>
  <threedsecure>
    <status>U</status>
  </threedsecure>
</response>`

const signatureErrorResponse = `<response timestamp="20030625171823">
  <result>520</result>
  <message>Invalid PaRes</message>
</response>`

const successfulCreditResponse = `<response timestamp='20010427043422'>
  <merchantid>your merchant id</merchantid>
  <account>account to use</account>
  <orderid>order id from request</orderid>
  <authcode>authcode received</authcode>
  <result>00</result>
  <message>[ test system ] message returned from system</message>
  <pasref> realex payments reference</pasref>
  <cvnresult>M</cvnresult>
  <batchid>batch id for this transaction (if any)</batchid>
</response>`

const unsuccessfulCreditResponse = `<response timestamp='20010427043422'>
  <merchantid>your merchant id</merchantid>
  <account>account to use</account>
  <orderid>order id from request</orderid>
  <authcode>authcode received</authcode>
  <result>508</result>
  <message>[ test system ] You may only rebate up to 115% of the original amount.</message>
  <pasref> realex payments reference</pasref>
  <cvnresult>M</cvnresult>
  <batchid>batch id for this transaction (if any)</batchid>
</response>`

const successfulPluginResponse = `<response timestamp="20080611121850">
  <merchantid>yourmerchantid</merchantid>
  <account>internet</account>
  <orderid>transaction01</orderid>
  <result>00</result>
  <message>Successful</message>
  <pasref>6210a82bba414793ba391254dffbbf77</pasref>
  <authcode></authcode>
  <batchid>161</batchid>
</response>`
